package stats

import (
	"math"
	"math/rand"
	"testing"
)

func TestMacKinnonPValue_KnownPoints(t *testing.T) {
	// Classic Dickey-Fuller critical values for the constant-only case:
	// tau = -2.86 is the 5% point, tau = -3.43 the 1% point.
	tests := []struct {
		tau  float64
		want float64
		tol  float64
	}{
		{-2.86, 0.05, 0.005},
		{-3.43, 0.01, 0.002},
	}
	for _, tt := range tests {
		got := mackinnonPValue(tt.tau)
		if math.Abs(got-tt.want) > tt.tol {
			t.Errorf("mackinnonPValue(%f) = %f, want ~%f", tt.tau, got, tt.want)
		}
	}
}

func TestMacKinnonPValue_Bounds(t *testing.T) {
	if got := mackinnonPValue(3.0); got != 1.0 {
		t.Errorf("p above tau max = %f, want 1.0", got)
	}
	if got := mackinnonPValue(-20.0); got != 0.0 {
		t.Errorf("p below tau min = %f, want 0.0", got)
	}
}

func TestADF_StationarySeries(t *testing.T) {
	// Strongly mean-reverting AR(1): x_t = 0.2*x_{t-1} + e_t.
	rng := rand.New(rand.NewSource(42))
	series := make([]float64, 250)
	for i := 1; i < len(series); i++ {
		series[i] = 0.2*series[i-1] + rng.NormFloat64()
	}

	res, err := ADF(series, 1)
	if err != nil {
		t.Fatalf("ADF: %v", err)
	}
	if res.PValue > 0.05 {
		t.Errorf("p-value = %f for stationary series, want <= 0.05", res.PValue)
	}
	if res.UsedLag < 0 || res.UsedLag > 1 {
		t.Errorf("used lag = %d, want 0 or 1", res.UsedLag)
	}
}

func TestADF_RandomWalk(t *testing.T) {
	// Random walk with drift: the level term has no explanatory power, so
	// the test must not reject the unit root.
	rng := rand.New(rand.NewSource(7))
	series := make([]float64, 250)
	for i := 1; i < len(series); i++ {
		series[i] = series[i-1] + 0.5 + rng.NormFloat64()
	}

	res, err := ADF(series, 1)
	if err != nil {
		t.Fatalf("ADF: %v", err)
	}
	if res.PValue < 0.05 {
		t.Errorf("p-value = %f for random walk, want well above 0.05", res.PValue)
	}
}

func TestADF_TooShort(t *testing.T) {
	if _, err := ADF([]float64{1, 2, 3, 4, 5}, 1); err == nil {
		t.Error("expected error for short series")
	}
}

func TestADF_ConstantSeries(t *testing.T) {
	series := make([]float64, 100)
	for i := range series {
		series[i] = 5.0
	}
	// Zero-variance level column makes the design singular; the caller is
	// expected to degrade the p-value to unavailable, not panic.
	if _, err := ADF(series, 1); err == nil {
		t.Error("expected error for constant series")
	}
}
