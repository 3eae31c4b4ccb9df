package stats

import "math"

// ADFResult holds the outcome of an augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic float64 // t-statistic of the lagged level coefficient
	PValue    float64 // MacKinnon approximate p-value
	UsedLag   int     // lag order selected by AIC
	NObs      int     // observations used by the final regression
}

// ADF runs an augmented Dickey-Fuller test with a constant regression term.
// The lag order is chosen from 0..maxLag by minimizing AIC over a common
// sample, then the test regression is refit on the longest sample the chosen
// lag allows:
//
//	dy_t = c + gamma*y_{t-1} + sum_{i=1..lag} phi_i*dy_{t-i} + e_t
//
// The p-value follows MacKinnon's (1994) response-surface approximation for
// the constant-only case.
func ADF(series []float64, maxLag int) (*ADFResult, error) {
	n := len(series)
	if maxLag < 0 {
		maxLag = 0
	}
	// Enough rows for the widest candidate regression plus a few residual
	// degrees of freedom.
	if n < maxLag+10 {
		return nil, ErrInsufficientData
	}

	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = series[i] - series[i-1]
	}

	// Lag selection on the common sample implied by maxLag.
	bestLag := 0
	bestAIC := math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		fit, err := adfRegression(series, diffs, lag, maxLag)
		if err != nil {
			continue
		}
		if aic := fit.AIC(); aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}
	if math.IsInf(bestAIC, 1) {
		return nil, ErrSingular
	}

	// Refit with the chosen lag on its full sample.
	fit, err := adfRegression(series, diffs, bestLag, bestLag)
	if err != nil {
		return nil, err
	}

	tau := fit.TStat(1) // gamma is the first regressor after the intercept
	return &ADFResult{
		Statistic: tau,
		PValue:    mackinnonPValue(tau),
		UsedLag:   bestLag,
		NObs:      fit.NObs,
	}, nil
}

// adfRegression fits the ADF test equation with `lag` difference lags,
// restricted to the sample a model with `sampleLag` lags would use, so that
// candidate lag orders are compared on identical observations.
func adfRegression(series, diffs []float64, lag, sampleLag int) (*OLSResult, error) {
	m := len(diffs)
	rows := m - sampleLag
	if rows < lag+4 {
		return nil, ErrInsufficientData
	}

	y := make([]float64, rows)
	level := make([]float64, rows)
	dlags := make([][]float64, lag)
	for i := range dlags {
		dlags[i] = make([]float64, rows)
	}

	for r := 0; r < rows; r++ {
		t := sampleLag + r // index into diffs
		y[r] = diffs[t]
		level[r] = series[t] // series[t] is the level preceding diffs[t]
		for i := 1; i <= lag; i++ {
			dlags[i-1][r] = diffs[t-i]
		}
	}

	cols := append([][]float64{level}, dlags...)
	return FitOLS(y, cols...)
}

// MacKinnon (1994) approximate asymptotic p-value surface for the
// Dickey-Fuller distribution with a constant term and a single unit root.
var (
	adfTauMax  = 2.74
	adfTauMin  = -18.83
	adfTauStar = -1.61

	// Polynomial coefficients (ascending order) feeding the standard
	// normal CDF, split at adfTauStar.
	adfSmallP = []float64{2.1659, 1.4412, 0.038269}
	adfLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

func mackinnonPValue(tau float64) float64 {
	switch {
	case tau > adfTauMax:
		return 1.0
	case tau < adfTauMin:
		return 0.0
	}
	coeffs := adfLargeP
	if tau <= adfTauStar {
		coeffs = adfSmallP
	}
	z := polyval(coeffs, tau)
	return normCDF(z)
}

func polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
