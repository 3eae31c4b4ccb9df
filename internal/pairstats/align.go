package pairstats

import (
	"context"
	"fmt"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// AlignedPair holds two price series inner-joined on calendar day and
// trimmed to the trailing window. Slices share one index: Dates[i] is the
// day of LeftCloses[i] and RightCloses[i].
type AlignedPair struct {
	Left        string
	Right       string
	Dates       []time.Time
	LeftCloses  []float64
	RightCloses []float64
}

// Len is the number of aligned observations.
func (a *AlignedPair) Len() int {
	return len(a.Dates)
}

// Align fetches recent closes for both legs and inner-joins them on day.
// Each leg is over-fetched (twice the window) so that non-overlapping
// trading calendars still yield a full window where the data allows it;
// the joined series is then trimmed to the trailing window observations.
func Align(ctx context.Context, quotes storage.QuoteStore, left, right string, window int) (*AlignedPair, error) {
	if window <= 0 {
		return nil, fmt.Errorf("align %s/%s: window must be positive, got %d", left, right, window)
	}

	leftObs, err := quotes.RecentCloses(ctx, left, 2*window)
	if err != nil {
		return nil, fmt.Errorf("align %s/%s: fetch %s closes: %w", left, right, left, err)
	}
	rightObs, err := quotes.RecentCloses(ctx, right, 2*window)
	if err != nil {
		return nil, fmt.Errorf("align %s/%s: fetch %s closes: %w", left, right, right, err)
	}

	rightByDay := make(map[time.Time]float64, len(rightObs))
	for _, q := range rightObs {
		rightByDay[domain.QuoteDay(q.Date)] = q.Close
	}

	aligned := &AlignedPair{Left: left, Right: right}
	for _, q := range leftObs {
		day := domain.QuoteDay(q.Date)
		rc, ok := rightByDay[day]
		if !ok {
			continue
		}
		aligned.Dates = append(aligned.Dates, day)
		aligned.LeftCloses = append(aligned.LeftCloses, q.Close)
		aligned.RightCloses = append(aligned.RightCloses, rc)
	}

	// RecentCloses is date ASC, so the join is already chronological.
	if n := len(aligned.Dates); n > window {
		aligned.Dates = aligned.Dates[n-window:]
		aligned.LeftCloses = aligned.LeftCloses[n-window:]
		aligned.RightCloses = aligned.RightCloses[n-window:]
	}

	return aligned, nil
}
