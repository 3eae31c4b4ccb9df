package scan

import (
	"context"
	"fmt"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/observability"
)

// ScanPairWindows evaluates one known pair at every window and picks the
// best approved row. The result is persisted into the pair's grid slot with
// a refreshed cache timestamp; the base slot is untouched.
func (s *Scanner) ScanPairWindows(ctx context.Context, pairID string, windows []int, th domain.Thresholds) (*domain.GridEvaluation, error) {
	pair, err := s.pairs.GetByID(ctx, pairID)
	if err != nil {
		return nil, fmt.Errorf("grid scan %s: %w", pairID, err)
	}
	if len(windows) == 0 {
		windows = domain.DefaultWindows
	}

	grid := &domain.GridEvaluation{
		Windows:    append([]int(nil), windows...),
		Thresholds: th,
	}
	for _, window := range windows {
		row := s.EvaluateWindow(ctx, pair.Left, pair.Right, window, th)
		grid.Rows = append(grid.Rows, row)
		observability.RecordWindowScanned()
	}

	if best := BestRow(grid.Rows); best != nil {
		w := best.Window
		grid.BestWindow = &w
	}

	if err := s.pairs.SaveGrid(ctx, pairID, grid, time.Now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("grid scan %s: persist: %w", pairID, err)
	}

	s.log.Info().
		Str("pair", pair.Label()).
		Int("windows", len(windows)).
		Interface("best_window", grid.BestWindow).
		Msg("grid scan finished")
	return grid, nil
}
