package diagnostics

import (
	"fmt"

	"github.com/petralab/libsmlp/dataset"
)

// Grid is one measure point's 8x8 per-shot result layout. Cells without a
// shot stay zero, which is indistinguishable from a true zero result; the
// transition matrix tells consumers which cells were populated.
type Grid [dataset.GridSize][dataset.GridSize]float64

// AccuracyHeatmaps scatters one scalar per test sample (typically 1 for a
// correct prediction, or the predicted probability of the true class) onto
// its measure point's 8x8 grid using the transition matrix built during
// dataset preparation. Gaps in a point's 64 shots simply stay empty.
func AccuracyHeatmaps(tm *dataset.TransitionMatrix, perShot []float64) ([]Grid, error) {
	if tm == nil {
		return nil, fmt.Errorf("diagnostics: nil transition matrix")
	}
	if tm.Len() != len(perShot) {
		return nil, fmt.Errorf("diagnostics: %d per-shot results vs %d transition rows", len(perShot), tm.Len())
	}
	grids := make([]Grid, tm.NumMeasurePoints())
	for i, v := range perShot {
		c := tm.At(i)
		grids[c.MeasurePoint][c.Row][c.Col] = v
	}
	return grids, nil
}

// MeanHeatmap averages cell-wise over all measure point grids, giving the
// per-shot-position accuracy across the whole test split.
func MeanHeatmap(grids []Grid) (Grid, error) {
	var mean Grid
	if len(grids) == 0 {
		return mean, fmt.Errorf("diagnostics: no grids to average")
	}
	for _, g := range grids {
		for r := range g {
			for c := range g[r] {
				mean[r][c] += g[r][c]
			}
		}
	}
	n := float64(len(grids))
	for r := range mean {
		for c := range mean[r] {
			mean[r][c] /= n
		}
	}
	return mean, nil
}
