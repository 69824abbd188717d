package dataset

import (
	"fmt"
	"sort"
)

// MapStrategy controls what a LabelMapping does with a label ID outside its
// domain. The strategy is chosen explicitly at construction; there is no
// implicit default behavior.
type MapStrategy int

const (
	// MapStrict fails on unmapped label IDs.
	MapStrict MapStrategy = iota
	// MapZeroFallback silently maps unmapped label IDs to index 0. Callers
	// opting in accept that unseen classes are folded into class 0.
	MapZeroFallback
)

// A LabelMapping bijects sparse label IDs (e.g. 11, 28, 73, 98) onto the
// contiguous index space [0, NumClasses). It is built once from the training
// split's observed labels, sorted ascending, and reused for evaluation and
// test splits without being rebuilt.
type LabelMapping struct {
	classes  []int
	indexOf  map[int]int
	strategy MapStrategy
}

// NewLabelMapping builds a mapping from the observed training labels.
// Duplicates are fine; the mapping enumerates the sorted unique IDs.
func NewLabelMapping(labels []int, strategy MapStrategy) (*LabelMapping, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("dataset: cannot build label mapping from an empty label set")
	}
	if strategy != MapStrict && strategy != MapZeroFallback {
		return nil, fmt.Errorf("dataset: invalid mapping strategy %d", strategy)
	}
	seen := make(map[int]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
	}
	classes := make([]int, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Ints(classes)

	indexOf := make(map[int]int, len(classes))
	for i, l := range classes {
		indexOf[l] = i
	}
	return &LabelMapping{classes: classes, indexOf: indexOf, strategy: strategy}, nil
}

// NumClasses returns the size of the contiguous index space.
func (m *LabelMapping) NumClasses() int { return len(m.classes) }

// Classes returns the sorted original label IDs.
func (m *LabelMapping) Classes() []int {
	out := make([]int, len(m.classes))
	copy(out, m.classes)
	return out
}

// Apply transforms one raw label ID to its contiguous index. Out-of-domain
// IDs follow the mapping's strategy: an error under MapStrict, index 0 under
// MapZeroFallback.
func (m *LabelMapping) Apply(id int) (int, error) {
	if idx, ok := m.indexOf[id]; ok {
		return idx, nil
	}
	if m.strategy == MapZeroFallback {
		return 0, nil
	}
	return 0, fmt.Errorf("dataset: label %d not in mapping domain %v", id, m.classes)
}

// ApplyAll transforms a sequence of raw label IDs.
func (m *LabelMapping) ApplyAll(ids []int) ([]int, error) {
	out := make([]int, len(ids))
	for i, id := range ids {
		idx, err := m.Apply(id)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Original returns the raw label ID for a contiguous index, the inverse of
// Apply.
func (m *LabelMapping) Original(index int) (int, error) {
	if index < 0 || index >= len(m.classes) {
		return 0, fmt.Errorf("dataset: index %d outside [0, %d)", index, len(m.classes))
	}
	return m.classes[index], nil
}

// DenseTable returns the mapping as a dense lookup array sized max(ID)+1.
// Slots for unmapped IDs default to 0; callers must not treat those entries
// as meaningful.
func (m *LabelMapping) DenseTable() []int {
	max := m.classes[len(m.classes)-1]
	table := make([]int, max+1)
	for i, l := range m.classes {
		table[l] = i
	}
	return table
}
