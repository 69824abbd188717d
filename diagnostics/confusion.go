// Package diagnostics scores classification output and renders confusion
// matrices and per-shot accuracy heatmaps from the dataset package's grid
// transition matrices.
package diagnostics

import "fmt"

// ConfusionMatrix counts predictions per (true, predicted) class pair and
// normalizes each row by its support, so entry (i, j) is the fraction of
// class-i samples predicted as class j. Rows without support stay zero.
func ConfusionMatrix(yTrue, yPred []int, numClasses int) ([][]float64, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("diagnostics: %d true labels vs %d predictions", len(yTrue), len(yPred))
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("diagnostics: numClasses must be > 0, got %d", numClasses)
	}
	m := make([][]float64, numClasses)
	for i := range m {
		m[i] = make([]float64, numClasses)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= numClasses || p < 0 || p >= numClasses {
			return nil, fmt.Errorf("diagnostics: label pair (%d, %d) outside [0, %d)", t, p, numClasses)
		}
		m[t][p]++
	}
	for i := range m {
		var support float64
		for _, v := range m[i] {
			support += v
		}
		if support == 0 {
			continue
		}
		for j := range m[i] {
			m[i][j] /= support
		}
	}
	return m, nil
}

// BalancedAccuracy averages per-class recall over the classes present in the
// true labels, compensating for class imbalance.
func BalancedAccuracy(yTrue, yPred []int) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("diagnostics: %d true labels vs %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("diagnostics: no samples to score")
	}
	support := make(map[int]int)
	correct := make(map[int]int)
	for i := range yTrue {
		support[yTrue[i]]++
		if yTrue[i] == yPred[i] {
			correct[yTrue[i]]++
		}
	}
	var sum float64
	for c, n := range support {
		sum += float64(correct[c]) / float64(n)
	}
	return sum / float64(len(support)), nil
}

// Accuracy is the plain fraction of correct predictions.
func Accuracy(yTrue, yPred []int) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("diagnostics: %d true labels vs %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("diagnostics: no samples to score")
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}
