package stats

import "math"

// Mean calculates the arithmetic mean. Zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStddev calculates the sample standard deviation (n-1 denominator).
func SampleStddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := Mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Correlation calculates the Pearson correlation of two equal-length
// samples. The second return is false when the correlation is undefined
// (short sample or zero variance).
func Correlation(a, b []float64) (float64, bool) {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0, false
	}
	meanA := Mean(a)
	meanB := Mean(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(varA*varB)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// HalfLife estimates the mean-reversion half-life of a series from the AR(1)
// regression ds_t = alpha + rho*s_{t-1}. Returns nil when the series is too
// short, the process is not mean-reverting (1+rho <= 0), or the estimate is
// not a finite positive number.
func HalfLife(series []float64) *float64 {
	n := len(series)
	if n < 3 {
		return nil
	}
	lag := make([]float64, n-1)
	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		lag[i-1] = series[i-1]
		diff[i-1] = series[i] - series[i-1]
	}
	_, rho, err := FitLine(lag, diff)
	if err != nil {
		return nil
	}
	if 1+rho <= 0 {
		return nil
	}
	hl := -math.Ln2 / math.Log(1+rho)
	if !(hl > 0) || math.IsInf(hl, 0) {
		return nil
	}
	return &hl
}
