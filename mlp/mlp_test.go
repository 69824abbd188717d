package mlp

import (
	"math"
	"testing"

	"github.com/petralab/libsmlp/dataset"
)

// fixedBatcher replays the same batch forever (repeating) or once
// (single pass), standing in for the file-backed generators.
type fixedBatcher struct {
	batch     *dataset.Batch
	repeating bool
	served    int
}

func (f *fixedBatcher) HasNext() bool { return f.repeating || f.served == 0 }

func (f *fixedBatcher) Next() (*dataset.Batch, error) {
	f.served++
	return f.batch, nil
}

func twoClassBatch() *dataset.Batch {
	return &dataset.Batch{
		Samples: [][]float64{
			{1, 0, 0, 0},
			{0, 0, 0, 1},
			{0.9, 0.1, 0, 0},
			{0, 0, 0.1, 0.9},
		},
		Labels: []int{0, 1, 0, 1},
	}
}

func crossEntropy(t *testing.T, m *Model, b *dataset.Batch) float64 {
	t.Helper()
	var loss float64
	for i, in := range b.Samples {
		p, err := m.Predict(in)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		loss -= math.Log(p[b.Labels[i]])
	}
	return loss / float64(len(b.Samples))
}

func TestNewModel_Validation(t *testing.T) {
	if _, err := NewModel(0, 2, Config{}); err == nil {
		t.Fatalf("expected error for zero input dimension")
	}
	if _, err := NewModel(4, 1, Config{}); err == nil {
		t.Fatalf("expected error for single-class model")
	}
	if _, err := NewModel(4, 3, Config{ClassWeights: []float64{1, 1}}); err == nil {
		t.Fatalf("expected error for weight/class count mismatch")
	}
	m, err := NewModel(4, 3, Config{Seed: 1})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if got := m.Config.HiddenSizes; len(got) != 3 || got[0] != 64 || got[1] != 256 || got[2] != 256 {
		t.Fatalf("default hidden sizes = %v", got)
	}
	if m.InputDim() != 4 || m.NumClasses() != 3 {
		t.Fatalf("dims = %d/%d, want 4/3", m.InputDim(), m.NumClasses())
	}
}

func TestPredict_SoftmaxOutput(t *testing.T) {
	m, err := NewModel(4, 3, Config{HiddenSizes: []int{8}, Seed: 2})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	p, err := m.Predict([]float64{0.1, 0.9, 0.4, 0.2})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("probability width = %d, want 3", len(p))
	}
	var sum float64
	for _, v := range p {
		if v < 0 || v > 1 {
			t.Fatalf("probability %v outside [0, 1]", v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("probabilities sum to %v, want 1", sum)
	}

	if _, err := m.Predict([]float64{1, 2}); err == nil {
		t.Fatalf("expected error for wrong input width")
	}
}

func TestNewModel_SeedDeterminism(t *testing.T) {
	in := []float64{0.3, 0.1, 0.7, 0.2}
	a, err := NewModel(4, 2, Config{HiddenSizes: []int{8}, Seed: 42})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	b, err := NewModel(4, 2, Config{HiddenSizes: []int{8}, Seed: 42})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	pa, _ := a.Predict(in)
	pb, _ := b.Predict(in)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed diverged: %v vs %v", pa, pb)
		}
	}
}

func TestTrain_ReducesLoss(t *testing.T) {
	batch := twoClassBatch()
	m, err := NewModel(4, 2, Config{
		HiddenSizes:  []int{16},
		LearningRate: 0.5,
		Epochs:       50,
		Seed:         3,
		ClassWeights: []float64{1, 1},
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	before := crossEntropy(t, m, batch)
	if err := m.Train(&fixedBatcher{batch: batch, repeating: true}, 2); err != nil {
		t.Fatalf("Train: %v", err)
	}
	after := crossEntropy(t, m, batch)
	if after >= before {
		t.Fatalf("loss did not decrease: before %v, after %v", before, after)
	}
}

func TestTrain_Errors(t *testing.T) {
	m, err := NewModel(4, 2, Config{HiddenSizes: []int{4}, Epochs: 1, Seed: 4})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if err := m.Train(nil, 1); err == nil {
		t.Fatalf("expected error for nil generator")
	}
	if err := m.Train(&fixedBatcher{batch: twoClassBatch(), repeating: true}, 0); err == nil {
		t.Fatalf("expected error for zero steps per epoch")
	}
	// exhausted single-pass generator mid-training fails loudly
	if err := m.Train(&fixedBatcher{batch: twoClassBatch()}, 3); err == nil {
		t.Fatalf("expected exhaustion error")
	}
	// out-of-range label fails loudly
	bad := &dataset.Batch{Samples: [][]float64{{1, 2, 3, 4}}, Labels: []int{5}}
	if err := m.Train(&fixedBatcher{batch: bad, repeating: true}, 1); err == nil {
		t.Fatalf("expected error for out-of-range label")
	}
}

func TestEvaluate(t *testing.T) {
	batch := twoClassBatch()
	m, err := NewModel(4, 2, Config{HiddenSizes: []int{8}, Seed: 5})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	yTrue, yPred, trueProb, err := m.Evaluate(&fixedBatcher{batch: batch})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(yTrue) != 4 || len(yPred) != 4 || len(trueProb) != 4 {
		t.Fatalf("result lengths = %d/%d/%d, want 4", len(yTrue), len(yPred), len(trueProb))
	}
	for i := range yTrue {
		if yTrue[i] != batch.Labels[i] {
			t.Fatalf("true labels reordered: %v vs %v", yTrue, batch.Labels)
		}
		if yPred[i] < 0 || yPred[i] >= 2 {
			t.Fatalf("prediction %d outside class range", yPred[i])
		}
		if trueProb[i] <= 0 || trueProb[i] >= 1 {
			t.Fatalf("true-class probability %v outside (0, 1)", trueProb[i])
		}
	}

	empty := &fixedBatcher{batch: &dataset.Batch{}}
	if _, _, _, err := m.Evaluate(empty); err == nil {
		t.Fatalf("expected error for empty evaluation split")
	}
}
