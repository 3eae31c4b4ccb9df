// Package hunt implements the descending-window search for at least one
// currently-approvable pair, with an optional human-in-the-loop gate
// between windows.
package hunt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/jobs"
	"pairs-lab/internal/scan"
	"pairs-lab/internal/storage"
)

// DefaultPollInterval paces the gate's decision polling.
const DefaultPollInterval = 2 * time.Second

// Gate supplies the operator decision between failed windows. Take returns
// ok=false while no decision is pending; the orchestrator keeps polling.
type Gate interface {
	Take(ctx context.Context) (jobs.Decision, bool, error)
}

// GatewayGate adapts a job gateway's one-shot decision signal into a Gate.
type GatewayGate struct {
	GW    jobs.Gateway
	JobID string
}

func (g *GatewayGate) Take(ctx context.Context) (jobs.Decision, bool, error) {
	return g.GW.TakeDecision(ctx, g.JobID)
}

// Options parameterize one hunt run.
type Options struct {
	// Windows overrides the search list; empty falls back to the user's
	// configured windows, then the defaults. Always walked largest first.
	Windows []int

	// Source selects what is evaluated per window: the instrument universe
	// (creating pairs on approval) or only the already-known pairs.
	Source domain.HuntSource

	UserID         string
	MaxInstruments int
	Thresholds     *scan.Override   // optional caller override layer
	Gate           Gate             // optional; nil auto-advances
	Progress       func(jobs.Event) // optional
}

// Orchestrator walks windows from largest to smallest and stops at the
// first one producing an approval. Longer-horizon evidence is preferred, so
// the search is greedy rather than exhaustive.
type Orchestrator struct {
	scanner      *scan.Scanner
	configs      storage.ConfigStore
	log          zerolog.Logger
	pollInterval time.Duration
}

// NewOrchestrator creates a hunt orchestrator.
func NewOrchestrator(scanner *scan.Scanner, configs storage.ConfigStore, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		scanner:      scanner,
		configs:      configs,
		log:          log,
		pollInterval: DefaultPollInterval,
	}
}

// WithPollInterval overrides the gate polling pace, for tests.
func (o *Orchestrator) WithPollInterval(d time.Duration) *Orchestrator {
	o.pollInterval = d
	return o
}

// Run executes the hunt and always returns a result; per-window failures
// accumulate in it rather than aborting the search.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*domain.HuntResult, error) {
	params, err := o.resolveParams(ctx, opts)
	if err != nil {
		return nil, err
	}

	windows := params.WindowsDescending()
	if len(opts.Windows) > 0 {
		windows = descending(opts.Windows)
	}
	if len(windows) == 0 {
		return nil, errors.New("hunt: no windows to scan")
	}

	source := opts.Source
	if source == "" {
		source = domain.SourceAssets
	}

	emit := opts.Progress
	if emit == nil {
		emit = func(jobs.Event) {}
	}

	result := &domain.HuntResult{}
	o.log.Info().Ints("windows", windows).Str("source", string(source)).Msg("hunt starting")

	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.ScannedWindows = append(result.ScannedWindows, window)

		build, err := o.scanWindow(ctx, source, window, params, opts, emit)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("window %d: %v", window, err))
			continue
		}
		result.Errors = append(result.Errors, build.Errors...)

		if len(build.ApprovedIDs) > 0 {
			w := window
			result.Found = true
			result.Window = &w
			result.ApprovedIDs = build.ApprovedIDs
			o.log.Info().Int("window", window).Int("approved", len(build.ApprovedIDs)).Msg("hunt found approvable pairs")
			return result, nil
		}

		var next *int
		if i+1 < len(windows) {
			next = &windows[i+1]
		}
		emit(jobs.WindowBoundary(window, next))

		if next == nil {
			break
		}
		if opts.Gate != nil {
			decision, err := o.awaitDecision(ctx, opts.Gate)
			if err != nil {
				return result, err
			}
			if decision == jobs.DecisionCancel {
				o.log.Info().Int("window", window).Msg("hunt cancelled at gate")
				return result, nil
			}
		}
	}

	o.log.Info().Ints("scanned", result.ScannedWindows).Msg("hunt exhausted all windows")
	return result, nil
}

func (o *Orchestrator) scanWindow(ctx context.Context, source domain.HuntSource, window int, params scan.Params, opts Options, emit func(jobs.Event)) (*domain.BaseBuildResult, error) {
	switch source {
	case domain.SourceAssets:
		return o.scanner.BuildUniverseBase(ctx, scan.BaseBuildOptions{
			Window:         window,
			MaxInstruments: opts.MaxInstruments,
			Thresholds:     params.Thresholds,
			Progress:       emit,
		})
	case domain.SourceExistingPairs:
		return o.scanner.RefreshExistingPairs(ctx, window, params.Thresholds, emit)
	default:
		return nil, fmt.Errorf("unknown hunt source %q", source)
	}
}

// awaitDecision polls the gate at a fixed interval until a decision is
// consumed or the context ends.
func (o *Orchestrator) awaitDecision(ctx context.Context, gate Gate) (jobs.Decision, error) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		decision, ok, err := gate.Take(ctx)
		if err != nil {
			return "", fmt.Errorf("hunt: gate: %w", err)
		}
		if ok {
			return decision, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) resolveParams(ctx context.Context, opts Options) (scan.Params, error) {
	var userLayer *scan.Override
	if opts.UserID != "" {
		cfg, err := o.configs.GetByUser(ctx, opts.UserID)
		switch {
		case err == nil:
			userLayer = scan.FromConfig(cfg)
		case errors.Is(err, storage.ErrNotFound):
			// fall through to defaults
		default:
			return scan.Params{}, fmt.Errorf("hunt: load config for %s: %w", opts.UserID, err)
		}
	}
	return scan.ResolveParams(userLayer, opts.Thresholds), nil
}

func descending(ws []int) []int {
	var out []int
	for _, w := range ws {
		if w > 0 {
			out = append(out, w)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
