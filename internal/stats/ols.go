// Package stats provides the regression and time-series primitives behind
// the pair metrics engine: ordinary least squares, an augmented
// Dickey-Fuller stationarity test, AR(1) half-life and return correlation.
package stats

import (
	"errors"
	"math"
)

// ErrSingular is returned when a regression design matrix is not invertible.
var ErrSingular = errors.New("stats: singular design matrix")

// ErrInsufficientData is returned when a computation has too few points.
var ErrInsufficientData = errors.New("stats: insufficient data")

// OLSResult holds a least-squares fit. Coefficients are ordered as the
// regressor columns were supplied, with the intercept first when requested.
type OLSResult struct {
	Coef   []float64 // estimated coefficients
	StdErr []float64 // coefficient standard errors
	SSR    float64   // sum of squared residuals
	NObs   int
	NVars  int
}

// TStat returns coefficient i divided by its standard error.
func (r *OLSResult) TStat(i int) float64 {
	if r.StdErr[i] == 0 {
		return math.Inf(1)
	}
	return r.Coef[i] / r.StdErr[i]
}

// LogLikelihood returns the Gaussian log-likelihood of the fit, the quantity
// the AIC lag selection in the ADF test compares across candidate models.
func (r *OLSResult) LogLikelihood() float64 {
	n := float64(r.NObs)
	return -n / 2 * (1 + math.Log(2*math.Pi) + math.Log(r.SSR/n))
}

// AIC returns Akaike's information criterion, 2k - 2*llf.
func (r *OLSResult) AIC() float64 {
	return 2*float64(r.NVars) - 2*r.LogLikelihood()
}

// FitLine estimates y = alpha + beta*x by closed-form least squares.
func FitLine(x, y []float64) (alpha, beta float64, err error) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, 0, ErrInsufficientData
	}
	meanX := Mean(x)
	meanY := Mean(y)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx == 0 {
		return 0, 0, ErrSingular
	}
	beta = sxy / sxx
	alpha = meanY - beta*meanX
	return alpha, beta, nil
}

// FitOLS estimates y = X*b with an intercept prepended to the supplied
// regressor columns. Solved via the normal equations; the designs used here
// have at most three regressors, so Gaussian elimination is sufficient.
func FitOLS(y []float64, cols ...[]float64) (*OLSResult, error) {
	n := len(y)
	k := len(cols) + 1 // intercept
	if n < k+1 {
		return nil, ErrInsufficientData
	}
	for _, c := range cols {
		if len(c) != n {
			return nil, ErrInsufficientData
		}
	}

	// X'X and X'y with X = [1 | cols...]
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	col := func(j int, row int) float64 {
		if j == 0 {
			return 1
		}
		return cols[j-1][row]
	}
	for row := 0; row < n; row++ {
		for i := 0; i < k; i++ {
			vi := col(i, row)
			xty[i] += vi * y[row]
			for j := i; j < k; j++ {
				xtx[i][j] += vi * col(j, row)
			}
		}
	}
	for i := 1; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invertSymmetric(xtx)
	if err != nil {
		return nil, err
	}

	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coef[i] += inv[i][j] * xty[j]
		}
	}

	var ssr float64
	for row := 0; row < n; row++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coef[j] * col(j, row)
		}
		resid := y[row] - pred
		ssr += resid * resid
	}

	sigma2 := ssr / float64(n-k)
	stderr := make([]float64, k)
	for i := 0; i < k; i++ {
		stderr[i] = math.Sqrt(sigma2 * inv[i][i])
	}

	return &OLSResult{Coef: coef, StdErr: stderr, SSR: ssr, NObs: n, NVars: k}, nil
}

// invertSymmetric inverts a small symmetric positive-definite matrix by
// Gauss-Jordan elimination with partial pivoting.
func invertSymmetric(m [][]float64) ([][]float64, error) {
	k := len(m)
	a := make([][]float64, k)
	inv := make([][]float64, k)
	for i := 0; i < k; i++ {
		a[i] = make([]float64, k)
		copy(a[i], m[i])
		inv[i] = make([]float64, k)
		inv[i][i] = 1
	}
	for colIdx := 0; colIdx < k; colIdx++ {
		pivot := colIdx
		for r := colIdx + 1; r < k; r++ {
			if math.Abs(a[r][colIdx]) > math.Abs(a[pivot][colIdx]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][colIdx]) < 1e-12 {
			return nil, ErrSingular
		}
		a[colIdx], a[pivot] = a[pivot], a[colIdx]
		inv[colIdx], inv[pivot] = inv[pivot], inv[colIdx]

		p := a[colIdx][colIdx]
		for j := 0; j < k; j++ {
			a[colIdx][j] /= p
			inv[colIdx][j] /= p
		}
		for r := 0; r < k; r++ {
			if r == colIdx {
				continue
			}
			f := a[r][colIdx]
			if f == 0 {
				continue
			}
			for j := 0; j < k; j++ {
				a[r][j] -= f * a[colIdx][j]
				inv[r][j] -= f * inv[colIdx][j]
			}
		}
	}
	return inv, nil
}
