package jobs

import "time"

// EventKind discriminates the closed set of progress event variants.
type EventKind string

const (
	EventStarting       EventKind = "starting"
	EventIterating      EventKind = "iterating"
	EventWindowBoundary EventKind = "window_boundary"
	EventDone           EventKind = "done"
	EventErrored        EventKind = "errored"
)

// Event is one progress event of a running job. Kind selects the variant;
// the remaining fields are populated per variant and omitted otherwise.
type Event struct {
	Kind EventKind `json:"kind"`

	// Iterating
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Label   string `json:"label,omitempty"`

	// WindowBoundary
	Window     int  `json:"window,omitempty"`
	NextWindow *int `json:"next_window,omitempty"`

	// Errored
	Error string `json:"error,omitempty"`

	At time.Time `json:"at,omitempty"`
}

// Starting builds the initial event of a job.
func Starting() Event {
	return Event{Kind: EventStarting}
}

// Iterating builds a per-item progress event.
func Iterating(current, total int, label string) Event {
	return Event{Kind: EventIterating, Current: current, Total: total, Label: label}
}

// WindowBoundary marks the transition out of a window that produced no
// approval. next is nil when no smaller window remains.
func WindowBoundary(window int, next *int) Event {
	return Event{Kind: EventWindowBoundary, Window: window, NextWindow: next}
}

// Done builds the terminal success event.
func Done() Event {
	return Event{Kind: EventDone}
}

// Errored builds the terminal failure event.
func Errored(msg string) Event {
	return Event{Kind: EventErrored, Error: msg}
}
