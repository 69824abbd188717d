package dataset

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/petralab/libsmlp/spectra"
)

// GeneratorConfig describes one batch generator. Generators own their file
// cursor and shuffle state; two generators built from the same config never
// share mutable state.
type GeneratorConfig struct {
	// Files to draw samples from, one sample archive per entry.
	Files []string

	// Target selects which of the three labels to classify.
	Target Target

	// NumClasses is the size of the contiguous class index space.
	NumClasses int

	// BatchSize of produced batches. Single-pass generators may produce a
	// short final batch.
	BatchSize int

	// Mapping transforms raw label IDs into contiguous indices. Shared
	// across the train/eval/test generators of one dataset.
	Mapping *LabelMapping

	// ShuffleRepeat selects repeating mode: shuffle the file list up front
	// and again on every exhaustion, never terminating. When false the
	// generator walks the list once in its given order.
	ShuffleRepeat bool

	// Normalizer rescales each intensity vector. Required.
	Normalizer spectra.Normalizer

	// Categorical one-hot encodes labels into (rows, NumClasses) matrices.
	Categorical bool

	// Baseline, when set, applies asymmetric least-squares baseline
	// correction to each sample before normalization.
	Baseline *spectra.BaselineConfig

	// Seed for shuffle order; 0 uses a time-based seed.
	Seed int64
}

// A Batch is one generated (samples, labels) pair. Samples always has shape
// (rows, featureLength). Labels is always populated with the transformed
// integer labels; OneHot is additionally populated for categorical
// generators, with shape (rows, numClasses).
type Batch struct {
	Samples [][]float64
	Labels  []int
	OneHot  [][]float64
}

// Rows returns the number of samples in the batch.
func (b *Batch) Rows() int { return len(b.Samples) }

// Tensors converts the batch into gomlx tensors for training-loop
// consumption: a float32 (rows, featureLength) input tensor and either a
// float32 (rows, numClasses) one-hot tensor or a float32 (rows) label
// vector.
func (b *Batch) Tensors() (inputs, labels *tensors.Tensor, err error) {
	if b.Rows() == 0 {
		return nil, nil, fmt.Errorf("dataset: cannot convert an empty batch to tensors")
	}
	in := make([][]float32, len(b.Samples))
	for i, row := range b.Samples {
		r := make([]float32, len(row))
		for j, v := range row {
			r[j] = float32(v)
		}
		in[i] = r
	}
	if b.OneHot != nil {
		oh := make([][]float32, len(b.OneHot))
		for i, row := range b.OneHot {
			r := make([]float32, len(row))
			for j, v := range row {
				r[j] = float32(v)
			}
			oh[i] = r
		}
		return tensors.FromAnyValue(in), tensors.FromAnyValue(oh), nil
	}
	flat := make([]float32, len(b.Labels))
	for i, l := range b.Labels {
		flat[i] = float32(l)
	}
	return tensors.FromAnyValue(in), tensors.FromAnyValue(flat), nil
}

// BatchGenerator lazily produces fixed-size batches from per-sample files,
// reading each file on demand. Production is synchronous and pull-based:
// nothing is read until Next is called.
type BatchGenerator struct {
	cfg        GeneratorConfig
	files      []string
	rng        *rand.Rand
	pos        int
	exhausted  bool
	featureLen int
}

// NewBatchGenerator validates the configuration and prepares the generator.
// Repeating generators shuffle their file list immediately.
func NewBatchGenerator(cfg GeneratorConfig) (*BatchGenerator, error) {
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be > 0, got %d", cfg.BatchSize)
	}
	if cfg.NumClasses <= 0 {
		return nil, fmt.Errorf("dataset: numClasses must be > 0, got %d", cfg.NumClasses)
	}
	if cfg.Mapping == nil {
		return nil, fmt.Errorf("dataset: generator requires a label mapping")
	}
	if cfg.Normalizer == nil {
		return nil, fmt.Errorf("dataset: generator requires a normalizer")
	}
	if cfg.ShuffleRepeat && len(cfg.Files) == 0 {
		return nil, fmt.Errorf("dataset: repeating generator requires a non-empty file list")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &BatchGenerator{
		cfg:   cfg,
		files: append([]string(nil), cfg.Files...),
		rng:   rand.New(rand.NewSource(seed)),
	}
	if cfg.ShuffleRepeat {
		g.shuffle()
	}
	return g, nil
}

func (g *BatchGenerator) shuffle() {
	g.rng.Shuffle(len(g.files), func(i, j int) {
		g.files[i], g.files[j] = g.files[j], g.files[i]
	})
}

// HasNext reports whether Next will produce another batch. Repeating
// generators always have more; single-pass generators are done once the file
// list is consumed.
func (g *BatchGenerator) HasNext() bool {
	if g.cfg.ShuffleRepeat {
		return true
	}
	return !g.exhausted && g.pos < len(g.files)
}

// Next produces the next batch. In repeating mode the full file list is
// consumed exactly once per pass before a reshuffle; batch boundaries may
// straddle the reshuffle point. In single-pass mode the final batch may hold
// fewer than BatchSize rows, after which the generator terminates.
// Read or parse errors from malformed sample files propagate without retry.
func (g *BatchGenerator) Next() (*Batch, error) {
	if !g.HasNext() {
		return nil, fmt.Errorf("dataset: generator exhausted")
	}

	b := &Batch{
		Samples: make([][]float64, 0, g.cfg.BatchSize),
		Labels:  make([]int, 0, g.cfg.BatchSize),
	}
	if g.cfg.Categorical {
		b.OneHot = make([][]float64, 0, g.cfg.BatchSize)
	}

	for len(b.Samples) < g.cfg.BatchSize {
		if g.pos >= len(g.files) {
			if g.cfg.ShuffleRepeat {
				g.pos = 0
				g.shuffle()
			} else {
				g.exhausted = true
				break
			}
		}

		path := g.files[g.pos]
		g.pos++

		row, label, err := g.loadRow(path)
		if err != nil {
			return nil, err
		}

		b.Samples = append(b.Samples, row)
		b.Labels = append(b.Labels, label)
		if g.cfg.Categorical {
			oh := make([]float64, g.cfg.NumClasses)
			oh[label] = 1
			b.OneHot = append(b.OneHot, oh)
		}
	}
	return b, nil
}

// loadRow reads one sample file and produces its normalized intensity row
// and transformed label.
func (g *BatchGenerator) loadRow(path string) ([]float64, int, error) {
	s, err := spectra.LoadSample(path)
	if err != nil {
		return nil, 0, err
	}

	var intensity []float64
	if g.cfg.Baseline != nil {
		intensity, err = spectra.BaselineALS(s.Data, *g.cfg.Baseline)
		if err != nil {
			return nil, 0, fmt.Errorf("baseline correction of %s: %w", path, err)
		}
	} else {
		intensity = s.Intensity()
	}

	row, err := g.cfg.Normalizer.Normalize(intensity)
	if err != nil {
		if errors.Is(err, spectra.ErrEmptySample) {
			// Degenerate sample: warn and pass the raw intensities
			// through so the caller sees the data-quality problem
			// downstream instead of losing the row.
			log.Printf("warning: %s: %v", path, err)
			row = intensity
		} else {
			return nil, 0, fmt.Errorf("normalize %s: %w", path, err)
		}
	}

	if g.featureLen == 0 {
		g.featureLen = len(row)
	} else if len(row) != g.featureLen {
		return nil, 0, fmt.Errorf("dataset: %s has %d intensity points, expected %d", path, len(row), g.featureLen)
	}

	label, err := g.cfg.Mapping.Apply(s.Labels[g.cfg.Target.labelIndex()])
	if err != nil {
		return nil, 0, fmt.Errorf("map label of %s: %w", path, err)
	}
	if label >= g.cfg.NumClasses {
		return nil, 0, fmt.Errorf("dataset: %s maps to class %d outside [0, %d)", path, label, g.cfg.NumClasses)
	}
	return row, label, nil
}

// Steps returns the number of batches needed to cover n samples once,
// ceil(n / batchSize).
func Steps(n, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return (n + batchSize - 1) / batchSize
}
