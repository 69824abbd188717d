package spectra

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptySample reports a sample with no positive intensities. Normalizers
// that would divide by zero on such input return it instead; callers decide
// whether to warn and continue with the raw values or to stop.
var ErrEmptySample = errors.New("spectra: sample is empty, no positive intensities")

// Method selects a normalization strategy for the intensity column.
type Method int

const (
	// MethodNone applies no normalization.
	MethodNone Method = iota
	// MethodSNV applies standard normal variate normalization.
	MethodSNV
	// MethodMinMax divides by the sample maximum.
	MethodMinMax
)

// Normalizer rescales a single intensity vector. Implementations never
// mutate the input.
type Normalizer interface {
	Name() string
	Normalize(intensity []float64) ([]float64, error)
}

// NewNormalizer returns the Normalizer for a method selector. An
// out-of-range selector is an error, never a silent default.
func NewNormalizer(m Method) (Normalizer, error) {
	switch m {
	case MethodNone:
		return noNorm{}, nil
	case MethodSNV:
		return snvNorm{}, nil
	case MethodMinMax:
		return minMaxNorm{}, nil
	default:
		return nil, fmt.Errorf("spectra: invalid normalization method %d", m)
	}
}

type noNorm struct{}

func (noNorm) Name() string { return "none" }

func (noNorm) Normalize(intensity []float64) ([]float64, error) {
	out := make([]float64, len(intensity))
	copy(out, intensity)
	return out, nil
}

type minMaxNorm struct{}

func (minMaxNorm) Name() string { return "minmax" }

func (minMaxNorm) Normalize(intensity []float64) ([]float64, error) {
	if len(intensity) == 0 {
		return nil, ErrEmptySample
	}
	max := floats.Max(intensity)
	if max <= 0 {
		return nil, ErrEmptySample
	}
	out := make([]float64, len(intensity))
	for i, v := range intensity {
		out[i] = v / max
	}
	return out, nil
}

type snvNorm struct{}

func (snvNorm) Name() string { return "snv" }

func (snvNorm) Normalize(intensity []float64) ([]float64, error) {
	if len(intensity) == 0 {
		return nil, ErrEmptySample
	}
	if floats.Max(intensity) <= 0 {
		return nil, ErrEmptySample
	}
	mean := stat.Mean(intensity, nil)
	// A zero standard deviation yields NaN values; downstream treats NaN as
	// a data-quality signal rather than a fault.
	std := stat.PopStdDev(intensity, nil)
	out := make([]float64, len(intensity))
	for i, v := range intensity {
		out[i] = (v - mean) / std
	}
	return out, nil
}
