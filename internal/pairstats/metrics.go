package pairstats

import (
	"context"
	"fmt"
	"math"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/stats"
	"pairs-lab/internal/storage"
)

// adfMaxLag is the maximum lag order offered to the AIC lag search of the
// stationarity test.
const adfMaxLag = 1

// WindowMetrics is the full metric set of one pair at one lookback window.
// Each metric is nil when its computation had insufficient data or failed
// numerically; NSamples is always populated.
type WindowMetrics struct {
	ADFPValue *float64
	Beta      *float64
	ZScore    *float64
	HalfLife  *float64
	Corr30    *float64
	Corr60    *float64
	NSamples  int
}

// Engine computes cointegration metrics for instrument pairs. It is
// stateless apart from the quote store handle and safe for concurrent use.
type Engine struct {
	quotes storage.QuoteStore
}

// NewEngine creates a metrics engine backed by the given quote store.
func NewEngine(quotes storage.QuoteStore) *Engine {
	return &Engine{quotes: quotes}
}

// ComputeWindowMetrics aligns the two legs and computes the metric set at
// the given window. Fewer than domain.MinSamples aligned observations yield
// a partial result carrying only the sample count.
func (e *Engine) ComputeWindowMetrics(ctx context.Context, left, right string, window int) (*WindowMetrics, error) {
	aligned, err := Align(ctx, e.quotes, left, right, window)
	if err != nil {
		return nil, err
	}
	return ComputeFromSeries(aligned.LeftCloses, aligned.RightCloses), nil
}

// ComputeFromSeries computes the metric set from two already-aligned close
// series of equal length. It never panics: metrics that cannot be computed
// are simply absent from the result.
func ComputeFromSeries(leftCloses, rightCloses []float64) *WindowMetrics {
	m := &WindowMetrics{NSamples: len(leftCloses)}
	if len(leftCloses) != len(rightCloses) || m.NSamples < domain.MinSamples {
		return m
	}

	logLeft := logPrices(leftCloses)
	logRight := logPrices(rightCloses)
	if logLeft == nil || logRight == nil {
		return m
	}

	m.Corr30 = logReturnCorrelation(logLeft, logRight, 30)
	m.Corr60 = logReturnCorrelation(logLeft, logRight, 60)

	_, beta, err := stats.FitLine(logRight, logLeft)
	if err != nil {
		return m
	}
	m.Beta = &beta

	spread := make([]float64, len(logLeft))
	for i := range logLeft {
		spread[i] = logLeft[i] - beta*logRight[i]
	}

	if z := zScoreSeries(spread); len(z) > 0 {
		last := z[len(z)-1]
		m.ZScore = &last
	}

	if res, err := stats.ADF(spread, adfMaxLag); err == nil {
		m.ADFPValue = &res.PValue
	}

	m.HalfLife = stats.HalfLife(spread)
	return m
}

// ZScoreSeries computes the standardized spread series of an aligned pair:
// s = log(left) − β·log(right), centered on the in-window mean and scaled
// by the in-window sample stddev (scale 1 when the spread is constant).
func ZScoreSeries(leftCloses, rightCloses []float64) ([]float64, error) {
	if len(leftCloses) != len(rightCloses) {
		return nil, fmt.Errorf("zscore series: leg lengths differ (%d vs %d)", len(leftCloses), len(rightCloses))
	}
	logLeft := logPrices(leftCloses)
	logRight := logPrices(rightCloses)
	if logLeft == nil || logRight == nil {
		return nil, fmt.Errorf("zscore series: non-positive close in input")
	}

	_, beta, err := stats.FitLine(logRight, logLeft)
	if err != nil {
		return nil, fmt.Errorf("zscore series: %w", err)
	}

	spread := make([]float64, len(logLeft))
	for i := range logLeft {
		spread[i] = logLeft[i] - beta*logRight[i]
	}
	return zScoreSeries(spread), nil
}

func zScoreSeries(spread []float64) []float64 {
	if len(spread) == 0 {
		return nil
	}
	mean := stats.Mean(spread)
	sd := stats.SampleStddev(spread)
	if sd == 0 {
		sd = 1
	}
	out := make([]float64, len(spread))
	for i, s := range spread {
		out[i] = (s - mean) / sd
	}
	return out
}

// logPrices returns the element-wise natural log of closes, or nil when any
// close is non-positive.
func logPrices(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		if c <= 0 {
			return nil
		}
		out[i] = math.Log(c)
	}
	return out
}

// logReturnCorrelation computes the Pearson correlation of the trailing
// lookback log returns of both legs. It requires at least
// max(10, 0.6×lookback) overlapping return observations.
func logReturnCorrelation(logLeft, logRight []float64, lookback int) *float64 {
	retLeft := diff(logLeft)
	retRight := diff(logRight)

	n := len(retLeft)
	if n > lookback {
		retLeft = retLeft[n-lookback:]
		retRight = retRight[n-lookback:]
	}

	minPoints := int(math.Max(10, 0.6*float64(lookback)))
	if len(retLeft) < minPoints {
		return nil
	}

	corr, ok := stats.Correlation(retLeft, retRight)
	if !ok {
		return nil
	}
	return &corr
}

func diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}
