package scan

import (
	"context"
	"fmt"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/jobs"
)

// BaseBuildOptions parameterize one universe base build.
type BaseBuildOptions struct {
	Window         int
	MaxInstruments int               // 0 means no cap
	Thresholds     domain.Thresholds
	Progress       func(jobs.Event) // optional
}

// BuildUniverseBase evaluates every unordered combination of active
// instruments at a single window. Approvals are persisted into the base
// slot, creating the canonical pair when new; rejections only overwrite the
// base slot of pairs that already exist, so a combination that fails on
// first sight leaves no row behind. Per-combination failures are collected
// as error strings and never abort the loop.
func (s *Scanner) BuildUniverseBase(ctx context.Context, opts BaseBuildOptions) (*domain.BaseBuildResult, error) {
	if opts.Window <= 0 {
		opts.Window = domain.DefaultBaseWindow
	}

	assets, err := s.assets.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("base build: list instruments: %w", err)
	}
	if opts.MaxInstruments > 0 && len(assets) > opts.MaxInstruments {
		assets = assets[:opts.MaxInstruments]
	}

	n := len(assets)
	total := n * (n - 1) / 2
	result := &domain.BaseBuildResult{}
	emit := opts.Progress
	if emit == nil {
		emit = func(jobs.Event) {}
	}

	s.log.Info().Int("instruments", n).Int("combinations", total).Int("window", opts.Window).Msg("base build starting")

	current := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			current++

			left, right, err := domain.CanonicalTickers(assets[i].Ticker, assets[j].Ticker)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", assets[i].Ticker, assets[j].Ticker, err))
				continue
			}
			emit(jobs.Iterating(current, total, left+"x"+right))

			s.evaluateBase(ctx, left, right, opts.Window, opts.Thresholds, result)
		}
	}

	s.log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("errors", len(result.Errors)).
		Msg("base build finished")
	return result, nil
}

// RefreshExistingPairs re-runs the base evaluation over every known pair at
// the given window. It never creates pairs: approvals update existing rows
// and rejections overwrite their base slot.
func (s *Scanner) RefreshExistingPairs(ctx context.Context, window int, th domain.Thresholds, progress func(jobs.Event)) (*domain.BaseBuildResult, error) {
	pairs, err := s.pairs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh pairs: %w", err)
	}

	result := &domain.BaseBuildResult{}
	emit := progress
	if emit == nil {
		emit = func(jobs.Event) {}
	}

	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		emit(jobs.Iterating(i+1, len(pairs), pair.Label()))
		s.evaluateBase(ctx, pair.Left, pair.Right, window, th, result)
	}
	return result, nil
}

// evaluateBase runs one combination's evaluate/persist step, accumulating
// into result. Approvals go through ApproveBase, rejections through
// RejectBase; error-status rows are only recorded in the error list so a
// transient failure never overwrites a pair's last good base evaluation.
func (s *Scanner) evaluateBase(ctx context.Context, left, right string, window int, th domain.Thresholds, result *domain.BaseBuildResult) {
	label := left + "x" + right
	row := s.EvaluateWindow(ctx, left, right, window, th)
	eval := &domain.BaseEvaluation{WindowEvaluation: row}
	now := time.Now().UnixMilli()

	switch row.Status {
	case domain.StatusOK:
		pair, created, err := s.pairs.ApproveBase(ctx, left, right, eval, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: persist approval: %v", label, err))
			return
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		result.ApprovedIDs = append(result.ApprovedIDs, pair.PairID)
	case domain.StatusRejected:
		if _, err := s.pairs.RejectBase(ctx, left, right, eval, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: persist rejection: %v", label, err))
		}
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", label, row.Message))
	}
}
