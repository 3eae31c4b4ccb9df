package pairstats

import (
	"context"
	"time"

	"pairs-lab/internal/stats"
)

// NormalizedPoint is one observation of the base-100 normalized dual-price
// series used by comparison charts.
type NormalizedPoint struct {
	Date  time.Time `json:"date"`
	Left  float64   `json:"left"`
	Right float64   `json:"right"`
}

// MovingBetaPoint is the hedge ratio of one non-overlapping block of
// observations, stamped with the block's last day. Beta is nil when the
// block's regression is degenerate.
type MovingBetaPoint struct {
	Date time.Time `json:"date"`
	Beta *float64  `json:"beta,omitempty"`
}

// ZScorePoint is one observation of the standardized spread series.
type ZScorePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// AnalysisSeries bundles the chartable series of one pair at one window.
type AnalysisSeries struct {
	Window     int               `json:"window"`
	NSamples   int               `json:"n_samples"`
	ZScores    []ZScorePoint     `json:"zscores,omitempty"`
	Normalized []NormalizedPoint `json:"normalized,omitempty"`
	MovingBeta []MovingBetaPoint `json:"moving_beta,omitempty"`
}

// NormalizedSeries rebases both legs of an aligned pair to 100 at the first
// observation so their paths are directly comparable.
func NormalizedSeries(aligned *AlignedPair) []NormalizedPoint {
	n := aligned.Len()
	if n == 0 {
		return nil
	}
	leftBase := aligned.LeftCloses[0]
	rightBase := aligned.RightCloses[0]
	if leftBase == 0 || rightBase == 0 {
		return nil
	}

	out := make([]NormalizedPoint, n)
	for i := 0; i < n; i++ {
		out[i] = NormalizedPoint{
			Date:  aligned.Dates[i],
			Left:  aligned.LeftCloses[i] / leftBase * 100,
			Right: aligned.RightCloses[i] / rightBase * 100,
		}
	}
	return out
}

// MovingBetaSeries fits an independent hedge ratio per non-overlapping block
// of blockSize observations, walking backwards from the most recent data so
// the final (most recent) block is always full. A trailing partial block at
// the start of the series is dropped.
func MovingBetaSeries(aligned *AlignedPair, blockSize int) []MovingBetaPoint {
	if blockSize < 2 || aligned.Len() < blockSize {
		return nil
	}

	logLeft := logPrices(aligned.LeftCloses)
	logRight := logPrices(aligned.RightCloses)
	if logLeft == nil || logRight == nil {
		return nil
	}

	var out []MovingBetaPoint
	for end := aligned.Len(); end >= blockSize; end -= blockSize {
		start := end - blockSize
		point := MovingBetaPoint{Date: aligned.Dates[end-1]}
		if _, beta, err := stats.FitLine(logRight[start:end], logLeft[start:end]); err == nil {
			point.Beta = &beta
		}
		out = append(out, point)
	}

	// Blocks were collected newest-first; charts want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ComputeAnalysisSeries aligns the pair and computes every chartable series
// at the given window. Series that cannot be computed are left empty; the
// sample count is always reported.
func (e *Engine) ComputeAnalysisSeries(ctx context.Context, left, right string, window, betaWindow int) (*AnalysisSeries, error) {
	aligned, err := Align(ctx, e.quotes, left, right, window)
	if err != nil {
		return nil, err
	}

	out := &AnalysisSeries{Window: window, NSamples: aligned.Len()}
	if z, err := ZScoreSeries(aligned.LeftCloses, aligned.RightCloses); err == nil {
		out.ZScores = make([]ZScorePoint, len(z))
		for i, v := range z {
			out.ZScores[i] = ZScorePoint{Date: aligned.Dates[i], Value: v}
		}
	}
	out.Normalized = NormalizedSeries(aligned)
	out.MovingBeta = MovingBetaSeries(aligned, betaWindow)
	return out, nil
}
