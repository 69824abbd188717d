package dataset

import (
	"math"
	"testing"
)

func TestFileLabel_Positions(t *testing.T) {
	// {mineral}_{class}_{subgroup}_{measurepoint}_{shot}.npz
	path := "/data/train/101_11_28_3_17.npz"

	cases := []struct {
		target Target
		want   int
	}{
		{TargetClass, 11},
		{TargetSubgroup, 28},
		{TargetMineral, 101},
	}
	for _, c := range cases {
		got, err := FileLabel(path, c.target)
		if err != nil {
			t.Fatalf("FileLabel(%v) error: %v", c.target, err)
		}
		if got != c.want {
			t.Fatalf("FileLabel(%v) = %d, want %d", c.target, got, c.want)
		}
	}
}

func TestFileLabel_Malformed(t *testing.T) {
	if _, err := FileLabel("too_few_tokens.npz", TargetClass); err == nil {
		t.Fatalf("expected error for short sample name")
	}
	if _, err := FileLabel("101_xx_28_3_17.npz", TargetClass); err == nil {
		t.Fatalf("expected error for non-integer label token")
	}
	if _, err := FileLabel("101_11_28_3_17.npz", Target(3)); err == nil {
		t.Fatalf("expected error for out-of-range target")
	}
}

func TestLabelMapping(t *testing.T) {
	m, err := NewLabelMapping([]int{98, 11, 73, 28, 11, 98}, MapStrict)
	if err != nil {
		t.Fatalf("NewLabelMapping error: %v", err)
	}
	if m.NumClasses() != 4 {
		t.Fatalf("NumClasses = %d, want 4", m.NumClasses())
	}

	want := map[int]int{11: 0, 28: 1, 73: 2, 98: 3}
	for id, idx := range want {
		got, err := m.Apply(id)
		if err != nil {
			t.Fatalf("Apply(%d) error: %v", id, err)
		}
		if got != idx {
			t.Fatalf("Apply(%d) = %d, want %d", id, got, idx)
		}
		// inverse lookup recovers the original ID
		orig, err := m.Original(got)
		if err != nil {
			t.Fatalf("Original(%d) error: %v", got, err)
		}
		if orig != id {
			t.Fatalf("Original(%d) = %d, want %d", got, orig, id)
		}
	}

	// strict mode fails hard on out-of-domain IDs
	if _, err := m.Apply(42); err == nil {
		t.Fatalf("expected error applying unmapped label in strict mode")
	}

	// ApplyAll
	got, err := m.ApplyAll([]int{73, 11, 98})
	if err != nil {
		t.Fatalf("ApplyAll error: %v", err)
	}
	for i, w := range []int{2, 0, 3} {
		if got[i] != w {
			t.Fatalf("ApplyAll[%d] = %d, want %d", i, got[i], w)
		}
	}
}

func TestLabelMapping_ZeroFallback(t *testing.T) {
	m, err := NewLabelMapping([]int{11, 28}, MapZeroFallback)
	if err != nil {
		t.Fatalf("NewLabelMapping error: %v", err)
	}
	got, err := m.Apply(42)
	if err != nil {
		t.Fatalf("Apply with fallback should not error: %v", err)
	}
	if got != 0 {
		t.Fatalf("fallback index = %d, want 0", got)
	}
}

func TestLabelMapping_DenseTable(t *testing.T) {
	m, err := NewLabelMapping([]int{11, 28, 73, 98}, MapStrict)
	if err != nil {
		t.Fatalf("NewLabelMapping error: %v", err)
	}
	table := m.DenseTable()
	if len(table) != 99 {
		t.Fatalf("dense table length = %d, want max(ID)+1 = 99", len(table))
	}
	if table[11] != 0 || table[28] != 1 || table[73] != 2 || table[98] != 3 {
		t.Fatalf("dense table mapping wrong: %v", []int{table[11], table[28], table[73], table[98]})
	}
	// unmapped slots default to 0 and are explicitly not meaningful
	if table[12] != 0 {
		t.Fatalf("unmapped slot = %d, want 0", table[12])
	}
}

func TestBalancedWeights(t *testing.T) {
	weights, err := BalancedWeights([]int{0, 0, 0, 1, 1, 1, 1}, 2)
	if err != nil {
		t.Fatalf("BalancedWeights error: %v", err)
	}
	if math.Abs(weights[0]-7.0/6.0) > 1e-12 {
		t.Fatalf("weight(0) = %v, want %v", weights[0], 7.0/6.0)
	}
	if math.Abs(weights[1]-0.875) > 1e-12 {
		t.Fatalf("weight(1) = %v, want 0.875", weights[1])
	}
}

func TestBalancedWeights_ZeroCountClass(t *testing.T) {
	if _, err := BalancedWeights([]int{0, 0, 0}, 2); err == nil {
		t.Fatalf("expected error for class with zero training samples")
	}
}

func TestTargetString(t *testing.T) {
	cases := map[Target]string{
		TargetClass:    "mineral classes",
		TargetSubgroup: "mineral subgroups",
		TargetMineral:  "minerals",
	}
	for tgt, want := range cases {
		if tgt.String() != want {
			t.Fatalf("Target(%d).String() = %q, want %q", int(tgt), tgt.String(), want)
		}
	}
}
