// Package dataset prepares LIBS sample collections for model training:
// label extraction and remapping, class-balanced weights, streaming batch
// generation, train/eval/test assembly and the measurement-grid transition
// matrix used by heatmap diagnostics.
package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Target selects what the model classifies.
type Target int

const (
	// TargetClass classifies into mineral classes.
	TargetClass Target = iota
	// TargetSubgroup classifies into mineral subgroups.
	TargetSubgroup
	// TargetMineral classifies into specific minerals.
	TargetMineral
)

// Validate rejects out-of-range target selectors at call time.
func (t Target) Validate() error {
	if t < TargetClass || t > TargetMineral {
		return fmt.Errorf("dataset: invalid classification target %d", int(t))
	}
	return nil
}

func (t Target) String() string {
	switch t {
	case TargetClass:
		return "mineral classes"
	case TargetSubgroup:
		return "mineral subgroups"
	case TargetMineral:
		return "minerals"
	default:
		return fmt.Sprintf("invalid target %d", int(t))
	}
}

// labelIndex maps a target to its slot in a sample's stored label array
// ([class, subgroup, mineral]).
func (t Target) labelIndex() int { return int(t) }

// tokenIndex maps a target to the position of its label in the
// underscore-delimited filename {mineral}_{class}_{subgroup}_{measurepoint}_..._{shot}.
var tokenIndex = [3]int{1, 2, 0}

// splitName returns the underscore-delimited tokens of a sample filename
// with the extension stripped from the last token.
func splitName(path string) ([]string, error) {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	tokens := strings.Split(base, "_")
	if len(tokens) < 5 {
		return nil, fmt.Errorf("dataset: malformed sample name %q: want at least 5 underscore-delimited fields, got %d", filepath.Base(path), len(tokens))
	}
	return tokens, nil
}

// FileLabel extracts the label for a classification target from a sample
// filename. Labels are always derivable from the name alone, so scanning a
// split never opens file contents.
func FileLabel(path string, t Target) (int, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	tokens, err := splitName(path)
	if err != nil {
		return 0, err
	}
	tok := tokens[tokenIndex[t]]
	id, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("dataset: non-integer label %q in sample name %q", tok, filepath.Base(path))
	}
	if id < 0 {
		return 0, fmt.Errorf("dataset: negative label %d in sample name %q", id, filepath.Base(path))
	}
	return id, nil
}

// FileLabels extracts labels for every file in the list.
func FileLabels(files []string, t Target) ([]int, error) {
	out := make([]int, len(files))
	for i, f := range files {
		id, err := FileLabel(f, t)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// shotKey identifies the measure point a shot belongs to and its position
// within the point's 8x8 grid.
type shotKey struct {
	mineral      string
	measurePoint string
	shot         int
}

// parseShotKey pulls the (mineral, measure point, shot) fields from a sample
// filename. The shot index is the last token and is 1-based in the name.
func parseShotKey(path string) (shotKey, error) {
	tokens, err := splitName(path)
	if err != nil {
		return shotKey{}, err
	}
	shot, err := strconv.Atoi(tokens[len(tokens)-1])
	if err != nil {
		return shotKey{}, fmt.Errorf("dataset: non-integer shot index in sample name %q", filepath.Base(path))
	}
	return shotKey{
		mineral:      tokens[0],
		measurePoint: tokens[3],
		shot:         shot,
	}, nil
}
