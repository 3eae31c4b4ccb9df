package stats

import (
	"math"
	"testing"
)

func TestSampleStddev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// Sample variance of this classic set is 32/7.
	want := math.Sqrt(32.0 / 7.0)
	if got := SampleStddev(xs); math.Abs(got-want) > 1e-9 {
		t.Errorf("SampleStddev = %f, want %f", got, want)
	}
}

func TestSampleStddev_SinglePoint(t *testing.T) {
	if got := SampleStddev([]float64{3}); got != 0 {
		t.Errorf("SampleStddev of one point = %f, want 0", got)
	}
}

func TestCorrelation_Perfect(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	r, ok := Correlation(a, b)
	if !ok {
		t.Fatal("correlation undefined for perfectly correlated series")
	}
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("r = %f, want 1.0", r)
	}

	inv := []float64{10, 8, 6, 4, 2}
	r, ok = Correlation(a, inv)
	if !ok || math.Abs(r+1.0) > 1e-9 {
		t.Errorf("r = %f (ok=%t), want -1.0", r, ok)
	}
}

func TestCorrelation_ZeroVariance(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{5, 5, 5, 5}
	if _, ok := Correlation(a, b); ok {
		t.Error("correlation with a constant series should be undefined")
	}
}

func TestHalfLife_AR1(t *testing.T) {
	// Noiseless AR(1) with rho-1 = -0.2: half-life = -ln(2)/ln(0.8).
	series := make([]float64, 100)
	series[0] = 10
	for i := 1; i < len(series); i++ {
		series[i] = 0.8 * series[i-1]
	}

	hl := HalfLife(series)
	if hl == nil {
		t.Fatal("HalfLife returned nil for mean-reverting series")
	}
	want := -math.Ln2 / math.Log(0.8)
	if math.Abs(*hl-want) > 0.01 {
		t.Errorf("half-life = %f, want %f", *hl, want)
	}
}

func TestHalfLife_Explosive(t *testing.T) {
	// ds = -1.5*s_{t-1}: 1+rho <= 0, not mean-reverting in the AR(1) sense.
	series := make([]float64, 50)
	series[0] = 1
	for i := 1; i < len(series); i++ {
		series[i] = -0.5 * series[i-1]
	}
	if hl := HalfLife(series); hl != nil {
		t.Errorf("half-life = %f, want nil for oscillating process", *hl)
	}
}

func TestHalfLife_TooShort(t *testing.T) {
	if hl := HalfLife([]float64{1, 2}); hl != nil {
		t.Error("half-life of two points should be nil")
	}
}
