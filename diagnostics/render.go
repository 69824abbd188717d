package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/petralab/libsmlp/dataset"
)

// gridXYZ adapts a Grid to plotter.GridXYZ. Row 0 of the grid is the first
// shot row, drawn at the top of the plot.
type gridXYZ struct{ g Grid }

func (x gridXYZ) Dims() (int, int)   { return dataset.GridSize, dataset.GridSize }
func (x gridXYZ) X(c int) float64    { return float64(c) }
func (x gridXYZ) Y(r int) float64    { return float64(dataset.GridSize - 1 - r) }
func (x gridXYZ) Z(c, r int) float64 { return x.g[r][c] }

// RenderHeatmap writes one grid as a PNG heatmap. Values are expected in
// [0, 1]; the palette range is pinned there so plots from different runs
// are comparable.
func RenderHeatmap(g Grid, title, outPath string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "shot column"
	p.Y.Label.Text = "shot row"

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(gridXYZ{g: g}, pal)
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot directory %s: %w", dir, err)
		}
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save heatmap %s: %w", outPath, err)
	}
	return nil
}

// matrixXYZ adapts a square row-major matrix to plotter.GridXYZ, first row
// at the top.
type matrixXYZ struct{ m [][]float64 }

func (x matrixXYZ) Dims() (int, int)   { return len(x.m), len(x.m) }
func (x matrixXYZ) X(c int) float64    { return float64(c) }
func (x matrixXYZ) Y(r int) float64    { return float64(len(x.m) - 1 - r) }
func (x matrixXYZ) Z(c, r int) float64 { return x.m[r][c] }

// RenderConfusionMatrix writes a row-normalized confusion matrix as a PNG
// heatmap, rows true classes, columns predicted.
func RenderConfusionMatrix(m [][]float64, outPath string) error {
	if len(m) == 0 {
		return fmt.Errorf("diagnostics: empty confusion matrix")
	}
	p := plot.New()
	p.Title.Text = "confusion matrix"
	p.X.Label.Text = "predicted class"
	p.Y.Label.Text = "true class"

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(matrixXYZ{m: m}, pal)
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot directory %s: %w", dir, err)
		}
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save confusion matrix %s: %w", outPath, err)
	}
	return nil
}

// RenderHeatmaps writes every measure point grid plus the cell-wise mean
// into outDir and returns the written paths.
func RenderHeatmaps(grids []Grid, outDir string) ([]string, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("diagnostics: no grids to render")
	}
	paths := make([]string, 0, len(grids)+1)
	for i, g := range grids {
		out := filepath.Join(outDir, fmt.Sprintf("measure_point_%03d.png", i))
		if err := RenderHeatmap(g, fmt.Sprintf("measure point %d", i), out); err != nil {
			return nil, err
		}
		paths = append(paths, out)
	}
	mean, err := MeanHeatmap(grids)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(outDir, "mean.png")
	if err := RenderHeatmap(mean, "mean over measure points", out); err != nil {
		return nil, err
	}
	return append(paths, out), nil
}
