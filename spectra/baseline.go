package spectra

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
)

// BaselineConfig holds the asymmetric least-squares parameters. Zero values
// are replaced by the defaults below, which work well for typical LIBS
// spectra.
type BaselineConfig struct {
	// Lam controls baseline smoothness; larger values give stiffer
	// baselines. Must be > 0.
	Lam float64

	// P is the asymmetry: residuals above the baseline are weighted by P,
	// residuals below by 1-P. Must lie in (0, 1).
	P float64

	// NIter is the number of reweighting iterations. Must be >= 1.
	NIter int
}

// DefaultBaseline matches the parameters used when preparing the synthetic
// spectra.
var DefaultBaseline = BaselineConfig{Lam: 102, P: 0.1, NIter: 10}

func (c BaselineConfig) validate() error {
	if c.Lam <= 0 {
		return fmt.Errorf("baseline: smoothness lam must be > 0, got %g", c.Lam)
	}
	if c.P <= 0 || c.P >= 1 {
		return fmt.Errorf("baseline: asymmetry p must be in (0, 1), got %g", c.P)
	}
	if c.NIter < 1 {
		return fmt.Errorf("baseline: niter must be >= 1, got %d", c.NIter)
	}
	return nil
}

// BaselineALS removes slow-varying background signal from a two-column
// (wavelength, intensity) sample by asymmetric least-squares smoothing and
// returns the corrected intensity vector, clipped to non-negative values.
// The wavelength column is discarded; negative intensities are clipped to
// zero before fitting.
//
// Each iteration solves (diag(w) + lam*D*Dᵀ) z = w*y for the baseline z,
// where D is the second-order difference operator, then reweights residuals
// asymmetrically. The penalty band lam*D*Dᵀ is built once since it does not
// depend on the weights. The system is symmetric pentadiagonal, so a banded
// Cholesky factorization solves it in O(L) per iteration.
//
// A sample with no positive intensities is reported with a warning; the fit
// still runs and may produce a degenerate result.
func BaselineALS(sample *mat.Dense, cfg BaselineConfig) ([]float64, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rows, cols := sample.Dims()
	if cols != 2 {
		return nil, fmt.Errorf("baseline: expected 2 columns (wavelength, intensity), got %d", cols)
	}
	if rows < 3 {
		return nil, fmt.Errorf("baseline: signal too short for second differences: %d points", rows)
	}

	// Clip negatives and drop the wavelength column.
	y := make([]float64, rows)
	maxY := 0.0
	for i := 0; i < rows; i++ {
		v := sample.At(i, 1)
		if v < 0 {
			v = 0
		}
		if v > maxY {
			maxY = v
		}
		y[i] = v
	}
	if maxY <= 0 {
		log.Printf("warning: LIBS shot is empty or invalid, no positive values")
	}

	// Penalty band lam*D*Dᵀ in upper-triangular symmetric band storage
	// (bandwidth 2). Each second-difference stencil (1, -2, 1) over rows
	// j..j+2 contributes its outer product.
	const bw = 2
	stencil := [3]float64{1, -2, 1}
	penalty := make([]float64, rows*(bw+1))
	for j := 0; j <= rows-3; j++ {
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				penalty[(j+a)*(bw+1)+(b-a)] += cfg.Lam * stencil[a] * stencil[b]
			}
		}
	}

	w := make([]float64, rows)
	for i := range w {
		w[i] = 1
	}

	band := make([]float64, len(penalty))
	rhs := mat.NewVecDense(rows, nil)
	z := mat.NewVecDense(rows, nil)
	var chol mat.BandCholesky

	for iter := 0; iter < cfg.NIter; iter++ {
		// Z = diag(w) + penalty; only the diagonal changes per iteration.
		copy(band, penalty)
		for i := 0; i < rows; i++ {
			band[i*(bw+1)] += w[i]
			rhs.SetVec(i, w[i]*y[i])
		}
		sym := mat.NewSymBandDense(rows, bw, band)
		if ok := chol.Factorize(sym); !ok {
			return nil, fmt.Errorf("baseline: weighted system is not positive definite at iteration %d", iter)
		}
		if err := chol.SolveVecTo(z, rhs); err != nil {
			return nil, fmt.Errorf("baseline: solve failed at iteration %d: %w", iter, err)
		}

		// An exact fit (flat or all-zero signals) would zero every weight
		// and make the next system singular; the fit cannot improve, so
		// stop.
		converged := true
		for i := 0; i < rows; i++ {
			if y[i] != z.AtVec(i) {
				converged = false
				break
			}
		}
		if converged {
			break
		}

		for i := 0; i < rows; i++ {
			switch {
			case y[i] > z.AtVec(i):
				w[i] = cfg.P
			case y[i] < z.AtVec(i):
				w[i] = 1 - cfg.P
			default:
				w[i] = 0
			}
		}
	}

	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := y[i] - z.AtVec(i)
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out, nil
}
