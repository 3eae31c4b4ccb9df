package scan

import (
	"reflect"
	"testing"

	"pairs-lab/internal/domain"
)

func fp(v float64) *float64 { return &v }

func okRow(window int, adfPct, zscore, beta float64) domain.WindowEvaluation {
	return domain.WindowEvaluation{
		Window:   window,
		ADFPct:   fp(adfPct),
		ZScore:   fp(zscore),
		Beta:     fp(beta),
		NSamples: 180,
		Status:   domain.StatusOK,
	}
}

func TestBestRow_HigherStationarityWins(t *testing.T) {
	rows := []domain.WindowEvaluation{
		okRow(80, 96.0, 5.0, 0.1),
		okRow(120, 99.0, 2.1, 3.0),
		okRow(180, 97.0, 4.0, 0.5),
	}
	best := BestRow(rows)
	if best == nil || best.Window != 120 {
		t.Fatalf("best = %+v, want window 120 (highest stationarity)", best)
	}
}

func TestBestRow_ZScoreBreaksStationarityTie(t *testing.T) {
	rows := []domain.WindowEvaluation{
		okRow(80, 99.0, -3.5, 0.1),
		okRow(120, 99.0, 2.1, 0.1),
		okRow(180, 98.0, 9.9, 0.1),
	}
	best := BestRow(rows)
	if best == nil || best.Window != 80 {
		t.Fatalf("best = %+v, want window 80 (larger |z| at equal stationarity)", best)
	}
}

func TestBestRow_BetaBreaksFullTie(t *testing.T) {
	rows := []domain.WindowEvaluation{
		okRow(80, 99.0, 2.5, -1.8),
		okRow(120, 99.0, 2.5, 0.9),
		okRow(180, 99.0, -2.5, 1.2),
	}
	best := BestRow(rows)
	if best == nil || best.Window != 120 {
		t.Fatalf("best = %+v, want window 120 (smallest |beta| at full tie)", best)
	}
}

func TestBestRow_IgnoresNonApprovedRows(t *testing.T) {
	rejected := okRow(80, 99.9, 9.9, 0.01)
	rejected.Reject("half-life 9.00 above maximum 5.00")
	rows := []domain.WindowEvaluation{
		rejected,
		okRow(120, 95.5, 2.1, 1.0),
		{Window: 180, NSamples: 10, Status: domain.StatusError, Message: "boom"},
	}
	best := BestRow(rows)
	if best == nil || best.Window != 120 {
		t.Fatalf("best = %+v, want window 120 (only approved row)", best)
	}
}

func TestBestRow_NoApprovedRows(t *testing.T) {
	row := okRow(80, 99.0, 2.5, 1.0)
	row.Reject("stationarity 90.00% below minimum 95.00%")
	if best := BestRow([]domain.WindowEvaluation{row}); best != nil {
		t.Fatalf("best = %+v, want nil", best)
	}
}

func TestApplyThresholds_CheckOrder(t *testing.T) {
	th := domain.DefaultThresholds()

	cases := []struct {
		name    string
		row     domain.WindowEvaluation
		status  domain.EvaluationStatus
		message string
	}{
		{
			name:    "sample floor first",
			row:     domain.WindowEvaluation{NSamples: 40},
			status:  domain.StatusRejected,
			message: "insufficient samples: 40 < 60",
		},
		{
			name:    "missing stationarity rejects",
			row:     domain.WindowEvaluation{NSamples: 180, ZScore: fp(3), HalfLife: fp(1)},
			status:  domain.StatusRejected,
			message: "stationarity test unavailable",
		},
		{
			name:    "stationarity floor",
			row:     domain.WindowEvaluation{NSamples: 180, ADFPct: fp(90), ZScore: fp(3), HalfLife: fp(1)},
			status:  domain.StatusRejected,
			message: "stationarity 90.00% below minimum 95.00%",
		},
		{
			name:    "zscore floor on absolute value",
			row:     domain.WindowEvaluation{NSamples: 180, ADFPct: fp(99), ZScore: fp(-1.2), HalfLife: fp(1)},
			status:  domain.StatusRejected,
			message: "|zscore| 1.20 below minimum 2.00",
		},
		{
			name:    "missing half-life rejects when ceiling set",
			row:     domain.WindowEvaluation{NSamples: 180, ADFPct: fp(99), ZScore: fp(-2.5)},
			status:  domain.StatusRejected,
			message: "half-life unavailable",
		},
		{
			name:    "half-life ceiling",
			row:     domain.WindowEvaluation{NSamples: 180, ADFPct: fp(99), ZScore: fp(2.5), HalfLife: fp(9)},
			status:  domain.StatusRejected,
			message: "half-life 9.00 above maximum 5.00",
		},
		{
			name:   "all thresholds pass",
			row:    domain.WindowEvaluation{NSamples: 180, ADFPct: fp(99), ZScore: fp(2.5), HalfLife: fp(1.5)},
			status: domain.StatusOK,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			applyThresholds(&tc.row, th)
			if tc.row.Status != tc.status {
				t.Fatalf("status = %s, want %s", tc.row.Status, tc.status)
			}
			if tc.message != "" && tc.row.Message != tc.message {
				t.Errorf("message = %q, want %q", tc.row.Message, tc.message)
			}
		})
	}
}

func TestApplyThresholds_DisabledHalfLifeFilter(t *testing.T) {
	th := domain.Thresholds{ADFMin: 95, ZScoreAbsMin: 2} // no half-life ceiling

	row := domain.WindowEvaluation{NSamples: 180, ADFPct: fp(99), ZScore: fp(2.5)}
	applyThresholds(&row, th)
	if row.Status != domain.StatusOK {
		t.Errorf("status = %s, want ok with half-life filter disabled", row.Status)
	}
}

func TestApplyThresholds_MonotoneInThresholds(t *testing.T) {
	strict := domain.DefaultThresholds()
	loose := domain.Thresholds{ADFMin: 80, ZScoreAbsMin: 1.0, HalfLifeMax: fp(20)}

	rows := []domain.WindowEvaluation{
		{NSamples: 180, ADFPct: fp(99.5), ZScore: fp(2.5), HalfLife: fp(1)},
		{NSamples: 180, ADFPct: fp(96.0), ZScore: fp(-3.0), HalfLife: fp(4.9)},
		{NSamples: 180, ADFPct: fp(95.0), ZScore: fp(2.0), HalfLife: fp(5.0)},
	}
	for i, row := range rows {
		a := row
		applyThresholds(&a, strict)
		if a.Status != domain.StatusOK {
			t.Fatalf("row %d not ok under strict thresholds: %s", i, a.Message)
		}
		b := row
		applyThresholds(&b, loose)
		if b.Status != domain.StatusOK {
			t.Errorf("row %d flipped to %s under looser thresholds", i, b.Status)
		}
	}
}

func TestResolveParams_Precedence(t *testing.T) {
	process := &Override{ADFMin: fp(90), BaseWindow: 160}
	user := &Override{ADFMin: fp(85), Windows: []int{100, 120}}
	caller := &Override{ZScoreAbsMin: fp(1.5)}

	p := ResolveParams(process, user, caller)
	if p.Thresholds.ADFMin != 85 {
		t.Errorf("ADFMin = %f, want 85 (user over process)", p.Thresholds.ADFMin)
	}
	if p.Thresholds.ZScoreAbsMin != 1.5 {
		t.Errorf("ZScoreAbsMin = %f, want 1.5 (caller layer)", p.Thresholds.ZScoreAbsMin)
	}
	if p.BaseWindow != 160 {
		t.Errorf("BaseWindow = %d, want 160 (process layer survives)", p.BaseWindow)
	}
	if len(p.Windows) != 2 || p.Windows[0] != 100 {
		t.Errorf("Windows = %v, want [100 120]", p.Windows)
	}
	if p.BetaWindow != domain.DefaultBetaWindow {
		t.Errorf("BetaWindow = %d, want default", p.BetaWindow)
	}
}

func TestResolveParams_InvalidValuesFallBack(t *testing.T) {
	bad := &Override{
		Windows:      []int{0, -5},
		BaseWindow:   -1,
		ADFMin:       fp(150),
		ZScoreAbsMin: fp(-2),
	}
	p := ResolveParams(bad)
	d := DefaultParams()
	if p.Thresholds.ADFMin != d.Thresholds.ADFMin || p.Thresholds.ZScoreAbsMin != d.Thresholds.ZScoreAbsMin {
		t.Errorf("invalid thresholds leaked: %+v", p.Thresholds)
	}
	if p.BaseWindow != d.BaseWindow || len(p.Windows) != len(d.Windows) {
		t.Errorf("invalid windows leaked: %+v", p)
	}
}

func TestResolveParams_DuplicateWindowsDropped(t *testing.T) {
	p := ResolveParams(&Override{Windows: []int{120, 100, 120, 100, 80}})
	want := []int{120, 100, 80}
	if !reflect.DeepEqual(p.Windows, want) {
		t.Errorf("Windows = %v, want %v", p.Windows, want)
	}
}

func TestResolveParams_NonPositiveHalfLifeDisablesFilter(t *testing.T) {
	p := ResolveParams(&Override{HalfLifeMax: fp(0)})
	if p.Thresholds.HalfLifeMax != nil {
		t.Errorf("HalfLifeMax = %v, want nil (filter disabled)", *p.Thresholds.HalfLifeMax)
	}
}

func TestParams_WindowsDescending(t *testing.T) {
	p := ResolveParams(&Override{Windows: []int{100, 180, 80}})
	got := p.WindowsDescending()
	want := []int{180, 100, 80}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WindowsDescending = %v, want %v", got, want)
	}
}
