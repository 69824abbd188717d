package dataset

import (
	"fmt"
)

// GridSize is the side length of a measure point's shot grid: up to 64 shots
// laid out 8x8.
const GridSize = 8

// A GridCoord places one shot on its measure point's grid.
type GridCoord struct {
	// MeasurePoint is the sequential 0-based index assigned to the shot's
	// measure point, independent of the numeric label in the filename.
	MeasurePoint int
	// Row and Col are the shot's grid coordinates, derived from the
	// 1-based shot index: row = (shot-1)/8, col = (shot-1)%8.
	Row int
	Col int
}

// A TransitionMatrix records, per test sample, where on its measure point's
// 8x8 grid the shot lands. Row count always equals the number of input
// files. Downstream consumers scatter per-sample scalars through it into
// (NumMeasurePoints, 8, 8) arrays.
type TransitionMatrix struct {
	coords []GridCoord
}

// Len returns the number of samples covered.
func (tm *TransitionMatrix) Len() int { return len(tm.coords) }

// At returns the grid placement of sample i.
func (tm *TransitionMatrix) At(i int) GridCoord { return tm.coords[i] }

// NumMeasurePoints returns the count of distinct measure points, one more
// than the highest assigned index.
func (tm *TransitionMatrix) NumMeasurePoints() int {
	if len(tm.coords) == 0 {
		return 0
	}
	max := 0
	for _, c := range tm.coords {
		if c.MeasurePoint > max {
			max = c.MeasurePoint
		}
	}
	return max + 1
}

// BuildTransitionMatrix maps a lexicographically sorted list of per-shot
// sample files onto 8x8 measurement grids. A single forward pass groups
// consecutive files sharing the same (mineral, measure point) pair into
// runs; each run receives the next sequential measure-point index. Real
// handheld data usually has gaps somewhere in a point's 64 shots, so shots
// are placed by their index rather than piled consecutively.
//
// Correct grouping requires same-measure-point files to be contiguous in the
// input. A key that reappears after its run has closed violates that
// assumption and fails loudly instead of being silently split into two
// measure points.
func BuildTransitionMatrix(files []string) (*TransitionMatrix, error) {
	coords := make([]GridCoord, len(files))
	seen := make(map[[2]string]bool)

	mp := -1
	var cur [2]string
	for i, f := range files {
		key, err := parseShotKey(f)
		if err != nil {
			return nil, err
		}
		if key.shot < 1 || key.shot > GridSize*GridSize {
			return nil, fmt.Errorf("dataset: shot index %d of %s outside [1, %d]", key.shot, f, GridSize*GridSize)
		}

		pair := [2]string{key.mineral, key.measurePoint}
		if mp < 0 || pair != cur {
			if seen[pair] {
				return nil, fmt.Errorf("dataset: measure point %s_%s is not contiguous in the sorted file list (reappears at position %d)", key.mineral, key.measurePoint, i)
			}
			seen[pair] = true
			cur = pair
			mp++
		}

		coords[i] = GridCoord{
			MeasurePoint: mp,
			Row:          (key.shot - 1) / GridSize,
			Col:          (key.shot - 1) % GridSize,
		}
	}
	return &TransitionMatrix{coords: coords}, nil
}
