// Package scan evaluates instrument pairs against approval thresholds: a
// single-window check, a multi-window grid with a deterministic best-window
// tie-break, and the universe-wide base build.
package scan

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/observability"
	"pairs-lab/internal/pairstats"
	"pairs-lab/internal/storage"
)

// Scanner runs pair evaluations against the configured stores.
type Scanner struct {
	engine *pairstats.Engine
	pairs  storage.PairStore
	assets storage.AssetStore
	log    zerolog.Logger
}

// NewScanner creates a scanner. Pass zerolog.Nop() to silence it.
func NewScanner(engine *pairstats.Engine, pairs storage.PairStore, assets storage.AssetStore, log zerolog.Logger) *Scanner {
	return &Scanner{engine: engine, pairs: pairs, assets: assets, log: log}
}

// EvaluateWindow computes the metrics of one pair at one window and applies
// the approval checks in order: sample floor, stationarity floor, z-score
// floor, half-life ceiling. The first failing check sets the rejection
// reason; a computation failure yields an error-status row instead of
// propagating.
func (s *Scanner) EvaluateWindow(ctx context.Context, left, right string, window int, th domain.Thresholds) (row domain.WindowEvaluation) {
	row = domain.WindowEvaluation{Window: window, Status: domain.StatusPending}

	defer func() { observability.RecordPairEvaluated(string(row.Status)) }()

	defer func() {
		if r := recover(); r != nil {
			row.Status = domain.StatusError
			row.Message = fmt.Sprintf("evaluation panicked: %v", r)
			s.log.Error().Str("pair", left+"x"+right).Int("window", window).Interface("panic", r).Msg("pair evaluation panicked")
		}
	}()

	m, err := s.engine.ComputeWindowMetrics(ctx, left, right, window)
	if err != nil {
		row.Status = domain.StatusError
		row.Message = err.Error()
		return row
	}

	row.NSamples = m.NSamples
	row.Beta = m.Beta
	row.ZScore = m.ZScore
	row.HalfLife = m.HalfLife
	row.Corr30 = m.Corr30
	row.Corr60 = m.Corr60
	row.ADFPValue = m.ADFPValue
	if m.ADFPValue != nil {
		pct := (1 - *m.ADFPValue) * 100
		row.ADFPct = &pct
	}

	applyThresholds(&row, th)
	return row
}

// applyThresholds sets the row's status: the checks run in a fixed order
// and the first failing one supplies the rejection reason. A missing input
// (no stationarity value, no z-score, no half-life while the ceiling is
// configured) always rejects, never approves.
func applyThresholds(row *domain.WindowEvaluation, th domain.Thresholds) {
	switch {
	case row.NSamples < domain.MinSamples:
		row.Reject(fmt.Sprintf("insufficient samples: %d < %d", row.NSamples, domain.MinSamples))
	case row.ADFPct == nil:
		row.Reject("stationarity test unavailable")
	case *row.ADFPct < th.ADFMin:
		row.Reject(fmt.Sprintf("stationarity %.2f%% below minimum %.2f%%", *row.ADFPct, th.ADFMin))
	case row.ZScore == nil:
		row.Reject("z-score unavailable")
	case math.Abs(*row.ZScore) < th.ZScoreAbsMin:
		row.Reject(fmt.Sprintf("|zscore| %.2f below minimum %.2f", math.Abs(*row.ZScore), th.ZScoreAbsMin))
	case th.HalfLifeMax != nil && row.HalfLife == nil:
		row.Reject("half-life unavailable")
	case th.HalfLifeMax != nil && *row.HalfLife > *th.HalfLifeMax:
		row.Reject(fmt.Sprintf("half-life %.2f above maximum %.2f", *row.HalfLife, *th.HalfLifeMax))
	default:
		row.Status = domain.StatusOK
		row.Message = ""
	}
}

// BestRow picks the winning row among the approved ones by strict priority:
// higher stationarity percentage, then higher absolute z-score, then lower
// absolute beta. Returns nil when no row is approved.
func BestRow(rows []domain.WindowEvaluation) *domain.WindowEvaluation {
	var best *domain.WindowEvaluation
	for i := range rows {
		row := &rows[i]
		if row.Status != domain.StatusOK {
			continue
		}
		if best == nil || betterRow(row, best) {
			best = row
		}
	}
	return best
}

// Better reports whether a ranks ahead of b under the grid tie-break.
// Callers ordering approved rows outside a grid use the same rule.
func Better(a, b *domain.WindowEvaluation) bool {
	return betterRow(a, b)
}

// betterRow reports whether a beats b under the grid tie-break. Both rows
// must be approved.
func betterRow(a, b *domain.WindowEvaluation) bool {
	aADF, bADF := deref(a.ADFPct), deref(b.ADFPct)
	if aADF != bADF {
		return aADF > bADF
	}
	aZ, bZ := math.Abs(deref(a.ZScore)), math.Abs(deref(b.ZScore))
	if aZ != bZ {
		return aZ > bZ
	}
	return absOrInf(a.Beta) < absOrInf(b.Beta)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func absOrInf(p *float64) float64 {
	if p == nil {
		return math.Inf(1)
	}
	return math.Abs(*p)
}
