package dataset

import "fmt"

// BalancedWeights computes inverse-frequency class weights from training
// labels already transformed into contiguous index space:
//
//	weight(c) = total / (numClasses * count(c))
//
// The result is indexed by contiguous class index, suitable as direct input
// to a loss-weighting mechanism. Every class must appear at least once in
// the labels; a zero-count class is an error rather than a division by zero.
func BalancedWeights(labels []int, numClasses int) ([]float64, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("dataset: numClasses must be > 0, got %d", numClasses)
	}
	counts := make([]int, numClasses)
	for _, l := range labels {
		if l < 0 || l >= numClasses {
			return nil, fmt.Errorf("dataset: label index %d outside [0, %d)", l, numClasses)
		}
		counts[l]++
	}
	weights := make([]float64, numClasses)
	total := float64(len(labels))
	for c, n := range counts {
		if n == 0 {
			return nil, fmt.Errorf("dataset: class %d has no training samples; every class needs at least one", c)
		}
		weights[c] = total / (float64(numClasses) * float64(n))
	}
	return weights, nil
}
