package spectra

import "math"

// Copper emission lines (nm) visible in the captured wavelength range.
var copperLines = []float64{219.25, 224.26, 224.7, 324.75, 327.4, 465.1124, 510.55, 515.32, 521.82}

// HasSufficientCopper checks a single intensity vector for copper content.
// If more than amountT of the copper lines fall below the dropT intensity
// threshold, the shot more likely captured matrix rock than ore and false is
// returned. The intensity vector is indexed by wavelength position: samples
// start at 180nm with a 0.1nm step, so line w maps to index round((w-180)*10).
func HasSufficientCopper(intensity []float64, amountT, dropT float64) bool {
	low := 0
	for _, w := range copperLines {
		idx := int(math.RoundToEven((w - 180) * 10))
		if idx < 0 || idx >= len(intensity) {
			continue
		}
		if intensity[idx] < dropT {
			low++
		}
		if float64(low)/float64(len(copperLines)) > amountT {
			return false
		}
	}
	return true
}
