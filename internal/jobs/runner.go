package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pairs-lab/internal/observability"
)

// Task is a unit of background work. It reports progress through emit and
// may consume operator decisions for its own job id via the gateway.
type Task func(ctx context.Context, jobID string, emit func(Event)) error

// Runner executes scans and hunts on background goroutines, one job id per
// run, translating task events into gateway records and log entries.
type Runner struct {
	gw  Gateway
	log zerolog.Logger
}

// NewRunner creates a runner publishing to the given gateway.
func NewRunner(gw Gateway, log zerolog.Logger) *Runner {
	return &Runner{gw: gw, log: log}
}

// Start launches the task in the background and returns its freshly minted
// job id immediately. The initial record is published before Start returns
// so a poll racing the goroutine never sees an unknown job.
func (r *Runner) Start(ctx context.Context, kind string, task Task) (string, error) {
	jobID := uuid.NewString()
	started := time.Now().UTC()

	rec := &Record{
		JobID:     jobID,
		Kind:      kind,
		State:     StateRunning,
		Event:     Starting(),
		StartedAt: started,
	}
	if err := r.gw.Publish(ctx, jobID, rec); err != nil {
		return "", err
	}
	if err := r.gw.AppendLog(ctx, jobID, rec.Event); err != nil {
		return "", err
	}

	go r.run(ctx, jobID, kind, started, task)
	return jobID, nil
}

func (r *Runner) run(ctx context.Context, jobID, kind string, started time.Time, task Task) {
	observability.JobStarted()

	emit := func(ev Event) {
		observability.RecordJobLogEntry()
		state := StateRunning
		if ev.Kind == EventWindowBoundary {
			state = StateWaitingDecision
		}
		rec := &Record{JobID: jobID, Kind: kind, State: state, Event: ev, StartedAt: started}
		if err := r.gw.Publish(ctx, jobID, rec); err != nil {
			r.log.Warn().Err(err).Str("job_id", jobID).Msg("publish progress failed")
		}
		if err := r.gw.AppendLog(ctx, jobID, ev); err != nil {
			r.log.Warn().Err(err).Str("job_id", jobID).Msg("append log failed")
		}
	}

	err := task(ctx, jobID, emit)

	terminal := Done()
	state := StateDone
	if err != nil {
		terminal = Errored(err.Error())
		state = StateError
		r.log.Error().Err(err).Str("job_id", jobID).Str("kind", kind).Msg("job failed")
	} else {
		r.log.Info().Str("job_id", jobID).Str("kind", kind).Msg("job finished")
	}

	observability.JobFinished(string(state))

	rec := &Record{JobID: jobID, Kind: kind, State: state, Event: terminal, StartedAt: started}
	if err := r.gw.Publish(ctx, jobID, rec); err != nil {
		r.log.Warn().Err(err).Str("job_id", jobID).Msg("publish terminal state failed")
	}
	if err := r.gw.AppendLog(ctx, jobID, terminal); err != nil {
		r.log.Warn().Err(err).Str("job_id", jobID).Msg("append terminal log failed")
	}
}
