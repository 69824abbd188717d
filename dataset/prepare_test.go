package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/petralab/libsmlp/spectra"
)

// fixtureSource lays out a train/test split under dir and returns the root.
// Class labels 11 and 28 are used with distinct minerals per file so every
// target has at least two classes.
func fixtureSource(t *testing.T, dir string, trainPerClass, testPerClass int) {
	t.Helper()
	for _, split := range []string{"train", "test"} {
		sub := filepath.Join(dir, split)
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", sub, err)
		}
		n := trainPerClass
		if split == "test" {
			n = testPerClass
		}
		for i := 0; i < n; i++ {
			writeSampleFile(t, sub, 11, 5, 100, i+1, 1, []float64{1, 2, 3})
			writeSampleFile(t, sub, 28, 6, 200, i+1, 1, []float64{3, 2, 1})
		}
	}
}

func writeConfig(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "datasets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingKey(t *testing.T) {
	tmp := t.TempDir()
	path := writeConfig(t, tmp, "synthetic:\n  path: /tmp/synth\n  name: synth\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if _, err := cfg.Source(ChoiceSynthetic); err != nil {
		t.Fatalf("synthetic source should resolve: %v", err)
	}
	if _, err := cfg.Source(ChoiceHandheld12); err == nil {
		t.Fatalf("expected missing-key error for handheld_12")
	}
	if _, err := cfg.Source(Choice(9)); err == nil {
		t.Fatalf("expected error for invalid dataset choice")
	}
}

func TestPrepare(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "hh12")
	fixtureSource(t, root, 3, 2) // 6 train files, 4 test files

	cfg := &Config{Handheld12: &Source{Path: root, Name: "hh12", Description: "handheld 12"}}

	d, err := Prepare(cfg, ChoiceHandheld12, Options{
		Target:              TargetClass,
		BatchSize:           4,
		Normalization:       spectra.MethodMinMax,
		TrainShuffleRepeat:  true,
		CategoricalLabels:   true,
		MeasurePointHeatmap: true,
		Seed:                1,
	})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}

	if d.NumClasses != 2 {
		t.Fatalf("NumClasses = %d, want 2", d.NumClasses)
	}
	if got := d.Mapping.Classes(); got[0] != 11 || got[1] != 28 {
		t.Fatalf("classes = %v, want [11 28]", got)
	}
	if len(d.TrainLabels) != 6 || len(d.TestLabels) != 4 {
		t.Fatalf("label counts = %d/%d, want 6/4", len(d.TrainLabels), len(d.TestLabels))
	}
	if d.TrainSteps != 2 || d.TestSteps != 1 {
		t.Fatalf("steps = %d/%d, want 2/1", d.TrainSteps, d.TestSteps)
	}
	// balanced classes get weight 1
	for c, w := range d.ClassWeights {
		if math.Abs(w-1.0) > 1e-12 {
			t.Fatalf("weight(%d) = %v, want 1.0", c, w)
		}
	}
	if d.HeatmapTM == nil || d.HeatmapTM.Len() != 4 {
		t.Fatalf("expected transition matrix covering 4 test samples")
	}
	if d.Train == nil || d.Eval == nil || d.Test == nil {
		t.Fatalf("plain preparation must construct eager generators")
	}

	// eval walks the test split once
	rows := 0
	for d.Eval.HasNext() {
		b, err := d.Eval.Next()
		if err != nil {
			t.Fatalf("eval Next error: %v", err)
		}
		rows += b.Rows()
	}
	if rows != 4 {
		t.Fatalf("eval produced %d rows, want 4", rows)
	}

	if got := d.Info(); got == "" {
		t.Fatalf("Info returned empty summary")
	}
}

func TestPrepare_InvalidSelectors(t *testing.T) {
	cfg := &Config{}
	if _, err := Prepare(cfg, ChoiceSynthetic, Options{Target: Target(5), BatchSize: 4}); err == nil {
		t.Fatalf("expected error for invalid target")
	}
	if _, err := Prepare(cfg, ChoiceSynthetic, Options{Target: TargetClass, BatchSize: 0}); err == nil {
		t.Fatalf("expected error for non-positive batch size")
	}
	if _, err := Prepare(cfg, ChoiceSynthetic, Options{Target: TargetClass, BatchSize: 4}); err == nil {
		t.Fatalf("expected missing-key error for unconfigured source")
	}
}

func TestPrepareMixture(t *testing.T) {
	tmp := t.TempDir()
	hhRoot := filepath.Join(tmp, "hh12")
	synRoot := filepath.Join(tmp, "synth")
	fixtureSource(t, hhRoot, 4, 2) // 8 train, 4 test
	fixtureSource(t, synRoot, 2, 1)

	cfg := &Config{
		Handheld12: &Source{Path: hhRoot, Name: "hh12"},
		Synthetic:  &Source{Path: synRoot, Name: "synth"},
	}

	// 100% mixture requests 4 per class but only 2 are stocked; the
	// assembler warns and takes the available maximum.
	d, err := PrepareMixture(cfg, 1.0, Options{
		Target:        TargetClass,
		BatchSize:     4,
		Normalization: spectra.MethodNone,
		Seed:          3,
	})
	if err != nil {
		t.Fatalf("PrepareMixture error: %v", err)
	}

	// 8 handheld + 2 synthetic per class
	if len(d.TrainLabels) != 12 {
		t.Fatalf("mixed train samples = %d, want 12", len(d.TrainLabels))
	}
	if d.TrainSteps != 3 {
		t.Fatalf("train steps = %d, want 3", d.TrainSteps)
	}
	if d.Eval != nil || d.Test != nil {
		t.Fatalf("mixture preparation must defer eval/test generators")
	}
	if d.EvalFunc == nil || d.TestFunc == nil {
		t.Fatalf("mixture preparation must provide generator constructors")
	}

	// the constructors are reusable: two instances both walk the full split
	for i := 0; i < 2; i++ {
		g, err := d.EvalFunc()
		if err != nil {
			t.Fatalf("EvalFunc error: %v", err)
		}
		rows := 0
		for g.HasNext() {
			b, err := g.Next()
			if err != nil {
				t.Fatalf("eval Next error: %v", err)
			}
			rows += b.Rows()
		}
		if rows != 4 {
			t.Fatalf("eval pass %d produced %d rows, want 4", i, rows)
		}
	}
}

func TestPrepareMixture_HalfPct(t *testing.T) {
	tmp := t.TempDir()
	hhRoot := filepath.Join(tmp, "hh12")
	synRoot := filepath.Join(tmp, "synth")
	fixtureSource(t, hhRoot, 4, 1)
	fixtureSource(t, synRoot, 4, 1)

	cfg := &Config{
		Handheld12: &Source{Path: hhRoot, Name: "hh12"},
		Synthetic:  &Source{Path: synRoot, Name: "synth"},
	}
	d, err := PrepareMixture(cfg, 0.5, Options{
		Target:        TargetClass,
		BatchSize:     4,
		Normalization: spectra.MethodNone,
	})
	if err != nil {
		t.Fatalf("PrepareMixture error: %v", err)
	}
	// 8 handheld + floor(4*0.5)=2 synthetic per class
	if len(d.TrainLabels) != 12 {
		t.Fatalf("mixed train samples = %d, want 12", len(d.TrainLabels))
	}
}
