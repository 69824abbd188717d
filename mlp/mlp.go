// Package mlp implements a small multilayer-perceptron classifier for
// spectral intensity vectors. It trains with mini-batch SGD on a
// class-weighted cross-entropy loss, consuming batches from the dataset
// package's generators.
package mlp

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/petralab/libsmlp/dataset"
)

// Config holds the classifier hyperparameters.
type Config struct {
	// HiddenSizes lists the hidden layer widths. If empty, three hidden
	// layers of 64, 256 and 256 units are used.
	HiddenSizes []int

	// LearningRate for SGD. Defaults to 0.001 if zero.
	LearningRate float64

	// Epochs to train for. Defaults to 10 if zero.
	Epochs int

	// Seed controls weight initialization. If zero, a time-based seed is used.
	Seed int64

	// ClassWeights scale the loss gradient per true class, indexed by the
	// remapped label. If nil, every class weighs 1.
	ClassWeights []float64
}

// Batcher is the slice of the batch generator API the trainer needs.
// *dataset.BatchGenerator satisfies it.
type Batcher interface {
	HasNext() bool
	Next() (*dataset.Batch, error)
}

// Model is a feed-forward classifier with ReLU hidden layers and a softmax
// output over the remapped class indices.
type Model struct {
	Config Config

	// layerSizes is input size, hidden sizes, then the class count.
	layerSizes []int

	// weights[l][j][i] connects unit i of layer l to unit j of layer l+1.
	weights [][][]float64
	biases  [][]float64

	rng *rand.Rand
}

// NewModel builds a classifier for inputDim-wide spectra over numClasses
// remapped labels, with Xavier-style uniform weight initialization.
func NewModel(inputDim, numClasses int, cfg Config) (*Model, error) {
	if inputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be > 0, got %d", inputDim)
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", numClasses)
	}
	if cfg.ClassWeights != nil && len(cfg.ClassWeights) != numClasses {
		return nil, fmt.Errorf("%d class weights for %d classes", len(cfg.ClassWeights), numClasses)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{64, 256, 256}
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.001
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 10
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &Model{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, inputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, numClasses)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float64, L)
	m.biases = make([][]float64, L)
	for l := 0; l < L; l++ {
		in, out := sizes[l], sizes[l+1]
		limit := math.Sqrt(6.0 / float64(in+out))
		W := make([][]float64, out)
		for j := range W {
			row := make([]float64, in)
			for i := range row {
				row[i] = (m.rng.Float64()*2.0 - 1.0) * limit
			}
			W[j] = row
		}
		m.weights[l] = W
		m.biases[l] = make([]float64, out)
	}
	return m, nil
}

// NumClasses is the width of the softmax output.
func (m *Model) NumClasses() int { return m.layerSizes[len(m.layerSizes)-1] }

// InputDim is the expected feature-vector length.
func (m *Model) InputDim() int { return m.layerSizes[0] }

func relu(x []float64) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

// softmax converts logits to probabilities in place, shifting by the max
// logit for numerical stability.
func softmax(x []float64) {
	max := x[0]
	for _, v := range x[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i := range x {
		x[i] = math.Exp(x[i] - max)
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}

// forward runs one input through the network, returning per-layer
// pre-activations and activations. acts[0] is the input and the last
// activation is the softmax probability vector.
func (m *Model) forward(input []float64) (preActs, acts [][]float64, err error) {
	if len(input) != m.layerSizes[0] {
		return nil, nil, fmt.Errorf("input has %d features, model expects %d", len(input), m.layerSizes[0])
	}
	L := len(m.weights)
	acts = make([][]float64, L+1)
	acts[0] = input
	preActs = make([][]float64, L)
	for l := 0; l < L; l++ {
		inVec := acts[l]
		W, b := m.weights[l], m.biases[l]
		pre := make([]float64, len(b))
		for j := range pre {
			sum := b[j]
			row := W[j]
			for i, v := range inVec {
				sum += row[i] * v
			}
			pre[j] = sum
		}
		preActs[l] = pre
		act := make([]float64, len(pre))
		copy(act, pre)
		if l < L-1 {
			relu(act)
		} else {
			softmax(act)
		}
		acts[l+1] = act
	}
	return preActs, acts, nil
}

// Predict returns the class probability vector for a single spectrum.
func (m *Model) Predict(input []float64) ([]float64, error) {
	_, acts, err := m.forward(input)
	if err != nil {
		return nil, err
	}
	return acts[len(acts)-1], nil
}

// PredictBatch returns one probability vector per input row.
func (m *Model) PredictBatch(inputs [][]float64) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		p, err := m.Predict(in)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}

// trainBatch accumulates cross-entropy gradients over one batch and applies
// an averaged SGD step. With softmax output the gradient of the weighted
// loss w.r.t. the logits is w_c * (p - onehot(c)).
func (m *Model) trainBatch(b *dataset.Batch) error {
	if b.Rows() == 0 {
		return nil
	}
	L := len(m.weights)
	gradW := make([][][]float64, L)
	gradB := make([][]float64, L)
	for l := 0; l < L; l++ {
		out := len(m.biases[l])
		in := len(m.weights[l][0])
		gradW[l] = make([][]float64, out)
		for j := range gradW[l] {
			gradW[l][j] = make([]float64, in)
		}
		gradB[l] = make([]float64, out)
	}

	numClasses := m.NumClasses()
	for ex := 0; ex < b.Rows(); ex++ {
		label := b.Labels[ex]
		if label < 0 || label >= numClasses {
			return fmt.Errorf("label %d outside [0, %d)", label, numClasses)
		}
		preActs, acts, err := m.forward(b.Samples[ex])
		if err != nil {
			return err
		}

		w := 1.0
		if m.Config.ClassWeights != nil {
			w = m.Config.ClassWeights[label]
		}
		probs := acts[len(acts)-1]
		delta := make([]float64, numClasses)
		for j := range delta {
			delta[j] = w * probs[j]
		}
		delta[label] -= w

		for l := L - 1; l >= 0; l-- {
			inAct := acts[l]
			for j, d := range delta {
				gradB[l][j] += d
				gw := gradW[l][j]
				for i, v := range inAct {
					gw[i] += d * v
				}
			}
			if l > 0 {
				prev := make([]float64, len(inAct))
				for i := range prev {
					var sum float64
					for j, d := range delta {
						sum += m.weights[l][j][i] * d
					}
					if preActs[l-1][i] <= 0 {
						sum = 0
					}
					prev[i] = sum
				}
				delta = prev
			}
		}
	}

	lr := m.Config.LearningRate
	inv := 1.0 / float64(b.Rows())
	for l := 0; l < L; l++ {
		for j := range m.biases[l] {
			m.biases[l][j] -= lr * gradB[l][j] * inv
			row := m.weights[l][j]
			for i := range row {
				row[i] -= lr * gradW[l][j][i] * inv
			}
		}
	}
	return nil
}

// Train runs Config.Epochs passes of stepsPerEpoch batches from a repeating
// generator. The generator shuffles and repeats internally, so the trainer
// only pulls batches.
func (m *Model) Train(g Batcher, stepsPerEpoch int) error {
	if g == nil {
		return errors.New("nil batch generator")
	}
	if stepsPerEpoch <= 0 {
		return fmt.Errorf("steps per epoch must be > 0, got %d", stepsPerEpoch)
	}
	for ep := 0; ep < m.Config.Epochs; ep++ {
		for s := 0; s < stepsPerEpoch; s++ {
			if !g.HasNext() {
				return fmt.Errorf("generator exhausted at epoch %d step %d", ep, s)
			}
			b, err := g.Next()
			if err != nil {
				return fmt.Errorf("epoch %d step %d: %w", ep, s, err)
			}
			if err := m.trainBatch(b); err != nil {
				return fmt.Errorf("epoch %d step %d: %w", ep, s, err)
			}
		}
	}
	return nil
}

// Evaluate walks a single-pass generator to exhaustion, returning the true
// remapped labels, the argmax predictions, and the predicted probability of
// each sample's true class.
func (m *Model) Evaluate(g Batcher) (yTrue, yPred []int, trueProb []float64, err error) {
	if g == nil {
		return nil, nil, nil, errors.New("nil batch generator")
	}
	for g.HasNext() {
		b, err := g.Next()
		if err != nil {
			return nil, nil, nil, err
		}
		for ex := 0; ex < b.Rows(); ex++ {
			probs, err := m.Predict(b.Samples[ex])
			if err != nil {
				return nil, nil, nil, err
			}
			label := b.Labels[ex]
			if label < 0 || label >= len(probs) {
				return nil, nil, nil, fmt.Errorf("label %d outside [0, %d)", label, len(probs))
			}
			yTrue = append(yTrue, label)
			yPred = append(yPred, argmax(probs))
			trueProb = append(trueProb, probs[label])
		}
	}
	if len(yTrue) == 0 {
		return nil, nil, nil, errors.New("evaluation generator produced no samples")
	}
	return yTrue, yPred, trueProb, nil
}
