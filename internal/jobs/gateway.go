package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownJob is returned when a job id has expired or never existed.
var ErrUnknownJob = errors.New("jobs: unknown job")

const (
	// TTL bounds how long an abandoned job's state is retained.
	TTL = 30 * time.Minute

	// MaxLogEntries caps the running log per job; the oldest entries are
	// dropped first.
	MaxLogEntries = 500
)

// State is the lifecycle phase of a job.
type State string

const (
	StateRunning         State = "running"
	StateWaitingDecision State = "waiting_decision"
	StateDone            State = "done"
	StateError           State = "error"
)

// Decision is the one-shot signal an operator sends to a waiting job.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionCancel   Decision = "cancel"
)

// Record is the latest published status of a job. Last write wins; there is
// no ordering guarantee beyond that.
type Record struct {
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"` // "scan" or "hunt"
	State     State     `json:"state"`
	Event     Event     `json:"event"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Gateway is the coordination surface between background jobs and external
// pollers. Implementations must be safe for concurrent readers and writers
// from independent goroutines; all stored state expires after TTL.
type Gateway interface {
	// Publish stores the latest status record of a job, replacing any
	// previous one and refreshing the TTL.
	Publish(ctx context.Context, jobID string, rec *Record) error

	// Fetch retrieves the latest record. Returns ErrUnknownJob when the id
	// has expired or was never published.
	Fetch(ctx context.Context, jobID string) (*Record, error)

	// AppendLog appends one event to the job's bounded running log.
	AppendLog(ctx context.Context, jobID string, ev Event) error

	// Log retrieves the running log in chronological order.
	Log(ctx context.Context, jobID string) ([]Event, error)

	// SetDecision stores the operator decision for a waiting job,
	// replacing any unconsumed one.
	SetDecision(ctx context.Context, jobID string, d Decision) error

	// TakeDecision consumes the pending decision exactly once. The second
	// return is false when no decision is pending.
	TakeDecision(ctx context.Context, jobID string) (Decision, bool, error)
}
