package spectra

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

// A Sample is one LIBS shot as stored on disk: a two-column (wavelength,
// intensity) array under the "data" key and a three-element integer label
// array under the "labels" key, ordered [class, subgroup, mineral].
//
// Samples are immutable once loaded; the loader returns a fresh value per
// call so generators never share buffers.
type Sample struct {
	// Data holds the (L, 2) measurement, wavelength in column 0 and
	// intensity in column 1.
	Data *mat.Dense

	// Labels are the three classification labels stored with the shot:
	// [class, subgroup, mineral].
	Labels [3]int
}

// Intensity returns a copy of the intensity column, discarding wavelengths.
func (s *Sample) Intensity() []float64 {
	rows, _ := s.Data.Dims()
	out := make([]float64, rows)
	mat.Col(out, 1, s.Data)
	return out
}

// LoadSample reads one sample archive from disk. The archive must contain a
// (L, 2) float array under "data" and a 3-element integer array under
// "labels" (numpy's savez stores keys with an ".npy" suffix; both spellings
// are accepted). Malformed archives propagate as errors with no retry.
func LoadSample(path string) (*Sample, error) {
	f, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample %s: %w", path, err)
	}
	defer f.Close()

	var data mat.Dense
	if err := readKey(f, "data", &data); err != nil {
		return nil, fmt.Errorf("read data from %s: %w", path, err)
	}
	rows, cols := data.Dims()
	if cols != 2 {
		return nil, fmt.Errorf("sample %s: expected 2 columns (wavelength, intensity), got %d", path, cols)
	}
	if rows == 0 {
		return nil, fmt.Errorf("sample %s: empty data array", path)
	}

	var labels []int64
	if err := readKey(f, "labels", &labels); err != nil {
		return nil, fmt.Errorf("read labels from %s: %w", path, err)
	}
	if len(labels) != 3 {
		return nil, fmt.Errorf("sample %s: expected 3 labels (class, subgroup, mineral), got %d", path, len(labels))
	}

	s := &Sample{Data: &data}
	for i, l := range labels {
		s.Labels[i] = int(l)
	}
	return s, nil
}

// WriteSample writes a sample archive in the on-disk layout LoadSample
// expects. Used by preparation tooling and tests.
func WriteSample(path string, s *Sample) error {
	w, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("create sample %s: %w", path, err)
	}
	if err := w.Write("data.npy", s.Data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", path, err)
	}
	labels := make([]int64, 3)
	for i, l := range s.Labels {
		labels[i] = int64(l)
	}
	if err := w.Write("labels.npy", labels); err != nil {
		w.Close()
		return fmt.Errorf("write labels to %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close sample %s: %w", path, err)
	}
	return nil
}

// readKey reads a key from an npz archive, accepting both the bare key and
// the numpy-style "<key>.npy" member name.
func readKey(f *npz.Reader, key string, ptr any) error {
	err := f.Read(key, ptr)
	if err == nil {
		return nil
	}
	if err2 := f.Read(key+".npy", ptr); err2 == nil {
		return nil
	}
	return err
}
