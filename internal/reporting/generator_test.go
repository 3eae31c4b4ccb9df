package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage/memory"
)

func fp(v float64) *float64 { return &v }

func approvedEval(window int, adfPct, z, beta float64) *domain.BaseEvaluation {
	return &domain.BaseEvaluation{WindowEvaluation: domain.WindowEvaluation{
		Window:   window,
		ADFPct:   fp(adfPct),
		ZScore:   fp(z),
		Beta:     fp(beta),
		HalfLife: fp(3.2),
		Corr30:   fp(0.8),
		Corr60:   fp(0.75),
		NSamples: window,
		Status:   domain.StatusOK,
	}}
}

func rejectedEval(window int, reason string) *domain.BaseEvaluation {
	return &domain.BaseEvaluation{WindowEvaluation: domain.WindowEvaluation{
		Window:   window,
		NSamples: window,
		Status:   domain.StatusRejected,
		Message:  reason,
	}}
}

func setupTestData(t *testing.T) *memory.PairStore {
	t.Helper()
	ctx := context.Background()
	pairs := memory.NewPairStore()

	// Two approvals; the second ranks first on ADF%.
	if _, _, err := pairs.ApproveBase(ctx, "ABEV3", "PETR4", approvedEval(140, 95.0, 2.4, 1.2), 1000); err != nil {
		t.Fatalf("ApproveBase: %v", err)
	}
	if _, _, err := pairs.ApproveBase(ctx, "ITUB4", "VALE3", approvedEval(120, 98.5, 2.1, 0.9), 2000); err != nil {
		t.Fatalf("ApproveBase: %v", err)
	}

	// A known pair whose latest base got rejected.
	if _, _, err := pairs.ApproveBase(ctx, "BBDC4", "WEGE3", approvedEval(120, 96.0, 2.2, 1.0), 3000); err != nil {
		t.Fatalf("ApproveBase: %v", err)
	}
	if _, err := pairs.RejectBase(ctx, "BBDC4", "WEGE3", rejectedEval(120, "|zscore| 1.20 below minimum 2.00"), 4000); err != nil {
		t.Fatalf("RejectBase: %v", err)
	}

	// A grid on the top pair.
	p, err := pairs.GetByTickers(ctx, "ITUB4", "VALE3")
	if err != nil {
		t.Fatalf("GetByTickers: %v", err)
	}
	best := 120
	grid := &domain.GridEvaluation{
		Rows: []domain.WindowEvaluation{
			approvedEval(120, 98.5, 2.1, 0.9).WindowEvaluation,
			rejectedEval(180, "stationarity 80.00% below minimum 90.00%").WindowEvaluation,
		},
		BestWindow: &best,
		Windows:    []int{120, 180},
		Thresholds: domain.DefaultThresholds(),
	}
	if err := pairs.SaveGrid(ctx, p.PairID, grid, 5000); err != nil {
		t.Fatalf("SaveGrid: %v", err)
	}
	if err := pairs.SetChosenWindow(ctx, p.PairID, 120); err != nil {
		t.Fatalf("SetChosenWindow: %v", err)
	}

	return pairs
}

func TestGenerate(t *testing.T) {
	pairs := setupTestData(t)

	gen := NewGenerator(pairs).WithClock(func() time.Time {
		return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	r, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if r.PairCount != 3 {
		t.Errorf("PairCount = %d, want 3", r.PairCount)
	}
	if r.Summary.Approved != 2 || r.Summary.Rejected != 1 {
		t.Errorf("summary = %+v, want 2 approved / 1 rejected", r.Summary)
	}
	if r.Summary.WithGrid != 1 || r.Summary.WithChosenWin != 1 {
		t.Errorf("summary grid/chosen = %d/%d, want 1/1", r.Summary.WithGrid, r.Summary.WithChosenWin)
	}

	// Best ADF% first
	if len(r.ApprovedPairs) != 2 {
		t.Fatalf("ApprovedPairs len = %d, want 2", len(r.ApprovedPairs))
	}
	if r.ApprovedPairs[0].Left != "ITUB4" || r.ApprovedPairs[0].Right != "VALE3" {
		t.Errorf("first approved = %sx%s, want ITUB4xVALE3",
			r.ApprovedPairs[0].Left, r.ApprovedPairs[0].Right)
	}
	if r.ApprovedPairs[0].ChosenWindow == nil || *r.ApprovedPairs[0].ChosenWindow != 120 {
		t.Errorf("chosen window = %v, want 120", r.ApprovedPairs[0].ChosenWindow)
	}

	if len(r.Rejections) != 1 || r.Rejections[0].Label != "BBDC4xWEGE3" {
		t.Errorf("rejections = %+v", r.Rejections)
	}
	if len(r.Grids) != 1 || r.Grids[0].Approved != 1 {
		t.Errorf("grids = %+v", r.Grids)
	}
}

func TestGenerate_Empty(t *testing.T) {
	gen := NewGenerator(memory.NewPairStore())

	r, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.PairCount != 0 || len(r.ApprovedPairs) != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}

	md := RenderMarkdown(r)
	if !strings.Contains(md, "No approved pairs.") {
		t.Error("markdown should state there are no approved pairs")
	}
}

func TestRenderMarkdown(t *testing.T) {
	pairs := setupTestData(t)
	gen := NewGenerator(pairs).WithClock(func() time.Time {
		return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	r, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	w := 140
	r.WithHunt(&domain.HuntResult{
		Found:          true,
		Window:         &w,
		ApprovedIDs:    []string{"abc123"},
		ScannedWindows: []int{180, 160, 140},
	})

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Pair Universe Report",
		"Generated: 2026-06-01T12:00:00Z",
		"| Total Pairs | 3 |",
		"Approvals found at window **140**",
		"Windows scanned: 180, 160, 140",
		"| ITUB4xVALE3 |",
		"| BBDC4xWEGE3 | 120 | |zscore| 1.20 below minimum 2.00 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	pairs := setupTestData(t)
	r, err := NewGenerator(pairs).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	csv := RenderCSV(r.ApprovedPairs)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "pair_id,left,right,window") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "ITUB4,VALE3,120") {
		t.Errorf("first row should be the best-ranked pair: %s", lines[1])
	}
	// Nil chosen window renders as an empty trailing field
	if !strings.HasSuffix(lines[2], ",") {
		t.Errorf("second row should end with empty chosen_window: %s", lines[2])
	}
}
