package scan

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/jobs"
	"pairs-lab/internal/pairstats"
	"pairs-lab/internal/storage/memory"
)

type fixture struct {
	assets  *memory.AssetStore
	quotes  *memory.QuoteStore
	pairs   *memory.PairStore
	scanner *Scanner
}

func newFixture() *fixture {
	assets := memory.NewAssetStore()
	quotes := memory.NewQuoteStore()
	pairs := memory.NewPairStore()
	engine := pairstats.NewEngine(quotes)
	return &fixture{
		assets:  assets,
		quotes:  quotes,
		pairs:   pairs,
		scanner: NewScanner(engine, pairs, assets, zerolog.Nop()),
	}
}

func (f *fixture) addAsset(t *testing.T, ticker string) {
	t.Helper()
	if err := f.assets.Insert(context.Background(), &domain.Asset{Ticker: ticker, Active: true}); err != nil {
		t.Fatalf("insert asset %s: %v", ticker, err)
	}
}

// loadCointegratedPair stores n days of synthetic closes for two tickers
// sharing a common stochastic trend, with the final left close bumped so
// the spread ends far from its mean and the z-score floor passes.
func (f *fixture) loadCointegratedPair(t *testing.T, left, right string, startDay, n int, seed int64) {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	logRight := math.Log(40.0)
	noise := 0.0
	var quotes []*domain.PriceObservation
	for i := 0; i < n; i++ {
		logRight += r.NormFloat64() * 0.02
		noise = 0.3*noise + r.NormFloat64()*0.02
		day := base.AddDate(0, 0, startDay+i)
		leftClose := math.Exp(0.05 + logRight + noise)
		if i == n-1 {
			leftClose *= 1.12
		}
		quotes = append(quotes,
			&domain.PriceObservation{Ticker: left, Date: day, Close: leftClose},
			&domain.PriceObservation{Ticker: right, Date: day, Close: math.Exp(logRight)},
		)
	}
	if err := f.quotes.InsertBulk(context.Background(), quotes); err != nil {
		t.Fatalf("load quotes %s/%s: %v", left, right, err)
	}
}

// loadShortHistory stores fewer days than the sample floor allows.
func (f *fixture) loadShortHistory(t *testing.T, ticker string, startDay, n int) {
	t.Helper()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	var quotes []*domain.PriceObservation
	for i := 0; i < n; i++ {
		quotes = append(quotes, &domain.PriceObservation{
			Ticker: ticker,
			Date:   base.AddDate(0, 0, startDay+i),
			Close:  10 + float64(i),
		})
	}
	if err := f.quotes.InsertBulk(context.Background(), quotes); err != nil {
		t.Fatalf("load quotes %s: %v", ticker, err)
	}
}

func TestBuildUniverseBase_TenInstruments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Three cointegrated pairs in disjoint date ranges, so every cross
	// combination has zero aligned observations and fails the sample floor
	// deterministically.
	f.loadCointegratedPair(t, "AAAA3", "AAAB3", 0, 200, 11)
	f.loadCointegratedPair(t, "BBBA3", "BBBB3", 300, 200, 12)
	f.loadCointegratedPair(t, "CCCA3", "CCCB3", 600, 200, 13)
	// Four instruments with too little history for any evaluation.
	f.loadShortHistory(t, "DDDA3", 900, 30)
	f.loadShortHistory(t, "DDDB3", 900, 30)
	f.loadShortHistory(t, "DDDC3", 900, 30)
	f.loadShortHistory(t, "DDDD3", 900, 30)
	for _, ticker := range []string{"AAAA3", "AAAB3", "BBBA3", "BBBB3", "CCCA3", "CCCB3", "DDDA3", "DDDB3", "DDDC3", "DDDD3"} {
		f.addAsset(t, ticker)
	}

	var events []jobs.Event
	result, err := f.scanner.BuildUniverseBase(ctx, BaseBuildOptions{
		Window:     180,
		Thresholds: domain.DefaultThresholds(),
		Progress:   func(ev jobs.Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("BuildUniverseBase failed: %v", err)
	}

	if result.Created != 3 {
		t.Errorf("Created = %d, want 3", result.Created)
	}
	if result.Updated != 0 {
		t.Errorf("Updated = %d, want 0", result.Updated)
	}
	if len(result.ApprovedIDs) != 3 {
		t.Errorf("ApprovedIDs = %v, want 3 ids", result.ApprovedIDs)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}

	// No orphan rows: rejected previously-unknown combinations must leave
	// nothing behind.
	stored, err := f.pairs.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored pairs = %d, want 3 (no orphan rejected rows)", len(stored))
	}
	for _, pair := range stored {
		if pair.Base == nil || pair.Base.Status != domain.StatusOK {
			t.Errorf("pair %s base = %+v, want approved", pair.Label(), pair.Base)
		}
	}

	// One progress event per combination: C(10,2) = 45.
	if len(events) != 45 {
		t.Errorf("progress events = %d, want 45", len(events))
	}
}

func TestBuildUniverseBase_SecondRunUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.loadCointegratedPair(t, "AAAA3", "AAAB3", 0, 200, 21)
	f.addAsset(t, "AAAA3")
	f.addAsset(t, "AAAB3")

	opts := BaseBuildOptions{Window: 180, Thresholds: domain.DefaultThresholds()}
	first, err := f.scanner.BuildUniverseBase(ctx, opts)
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if first.Created != 1 || first.Updated != 0 {
		t.Fatalf("first build = created %d / updated %d, want 1/0", first.Created, first.Updated)
	}

	second, err := f.scanner.BuildUniverseBase(ctx, opts)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}
	if second.Created != 0 || second.Updated != 1 {
		t.Errorf("second build = created %d / updated %d, want 0/1", second.Created, second.Updated)
	}
}

func TestBuildUniverseBase_MaxInstrumentsCap(t *testing.T) {
	f := newFixture()
	for _, ticker := range []string{"AAAA3", "AAAB3", "AAAC3", "AAAD3"} {
		f.addAsset(t, ticker)
	}

	var events []jobs.Event
	_, err := f.scanner.BuildUniverseBase(context.Background(), BaseBuildOptions{
		Window:         180,
		MaxInstruments: 3,
		Thresholds:     domain.DefaultThresholds(),
		Progress:       func(ev jobs.Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("BuildUniverseBase failed: %v", err)
	}
	// C(3,2) = 3 combinations under the cap.
	if len(events) != 3 {
		t.Errorf("progress events = %d, want 3", len(events))
	}
}

func TestEvaluateWindow_InsufficientSamplesMessage(t *testing.T) {
	f := newFixture()
	f.loadShortHistory(t, "AAAA3", 0, 30)
	f.loadShortHistory(t, "AAAB3", 0, 30)

	row := f.scanner.EvaluateWindow(context.Background(), "AAAA3", "AAAB3", 180, domain.DefaultThresholds())
	if row.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want reprovado", row.Status)
	}
	if !strings.Contains(row.Message, "insufficient samples") || !strings.Contains(row.Message, "30") {
		t.Errorf("message = %q, want sample-size mention", row.Message)
	}
	if row.NSamples != 30 {
		t.Errorf("NSamples = %d, want 30", row.NSamples)
	}
}

func TestScanPairWindows_RoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.loadCointegratedPair(t, "AAAA3", "AAAB3", 0, 200, 31)

	seed := &domain.BaseEvaluation{WindowEvaluation: domain.WindowEvaluation{Window: 180, NSamples: 180, Status: domain.StatusOK}}
	pair, _, err := f.pairs.ApproveBase(ctx, "AAAA3", "AAAB3", seed, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("ApproveBase failed: %v", err)
	}

	windows := []int{80, 120, 180}
	grid, err := f.scanner.ScanPairWindows(ctx, pair.PairID, windows, domain.DefaultThresholds())
	if err != nil {
		t.Fatalf("ScanPairWindows failed: %v", err)
	}
	if len(grid.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(grid.Rows))
	}
	if grid.BestWindow == nil {
		t.Fatal("BestWindow is nil for a cointegrated pair")
	}

	reread, err := f.pairs.GetByID(ctx, pair.PairID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reread.Grid == nil {
		t.Fatal("grid slot not persisted")
	}
	if len(reread.Grid.Rows) != len(grid.Rows) {
		t.Errorf("persisted rows = %d, want %d", len(reread.Grid.Rows), len(grid.Rows))
	}
	if reread.Grid.BestWindow == nil || *reread.Grid.BestWindow != *grid.BestWindow {
		t.Errorf("persisted best window = %v, want %v", reread.Grid.BestWindow, grid.BestWindow)
	}
	if reread.Base == nil || reread.Base.Status != domain.StatusOK {
		t.Error("grid write erased the base slot")
	}
}

func TestRefreshExistingPairs_NeverCreates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.loadCointegratedPair(t, "AAAA3", "AAAB3", 0, 200, 41)
	seed := &domain.BaseEvaluation{WindowEvaluation: domain.WindowEvaluation{Window: 180, Status: domain.StatusPending}}
	if _, _, err := f.pairs.ApproveBase(ctx, "AAAA3", "AAAB3", seed, time.Now().UnixMilli()); err != nil {
		t.Fatalf("ApproveBase failed: %v", err)
	}

	result, err := f.scanner.RefreshExistingPairs(ctx, 180, domain.DefaultThresholds(), nil)
	if err != nil {
		t.Fatalf("RefreshExistingPairs failed: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("Created = %d, want 0 (refresh never creates)", result.Created)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1", result.Updated)
	}

	stored, _ := f.pairs.List(ctx)
	if len(stored) != 1 {
		t.Errorf("stored pairs = %d, want 1", len(stored))
	}
}
