package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryGateway is an in-process Gateway used by unit tests and the CLI
// entrypoints. State expires after TTL; expiry is enforced lazily on access.
type MemoryGateway struct {
	mu        sync.RWMutex
	records   map[string]memoryEntry[*Record]
	logs      map[string]memoryEntry[[]Event]
	decisions map[string]memoryEntry[Decision]
	now       func() time.Time
}

type memoryEntry[T any] struct {
	value   T
	expires time.Time
}

// NewMemoryGateway creates an in-process gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		records:   make(map[string]memoryEntry[*Record]),
		logs:      make(map[string]memoryEntry[[]Event]),
		decisions: make(map[string]memoryEntry[Decision]),
		now:       time.Now,
	}
}

// Compile-time interface check.
var _ Gateway = (*MemoryGateway)(nil)

// WithClock replaces the time source, for tests exercising expiry.
func (g *MemoryGateway) WithClock(now func() time.Time) *MemoryGateway {
	g.now = now
	return g
}

func (g *MemoryGateway) Publish(_ context.Context, jobID string, rec *Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	recCopy := *rec
	recCopy.UpdatedAt = g.now()
	g.records[jobID] = memoryEntry[*Record]{value: &recCopy, expires: g.now().Add(TTL)}
	return nil
}

func (g *MemoryGateway) Fetch(_ context.Context, jobID string) (*Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, ok := g.records[jobID]
	if !ok || g.now().After(entry.expires) {
		return nil, ErrUnknownJob
	}
	recCopy := *entry.value
	return &recCopy, nil
}

func (g *MemoryGateway) AppendLog(_ context.Context, jobID string, ev Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ev.At.IsZero() {
		ev.At = g.now()
	}

	entry, ok := g.logs[jobID]
	if !ok || g.now().After(entry.expires) {
		entry = memoryEntry[[]Event]{}
	}
	entry.value = append(entry.value, ev)
	if len(entry.value) > MaxLogEntries {
		entry.value = entry.value[len(entry.value)-MaxLogEntries:]
	}
	entry.expires = g.now().Add(TTL)
	g.logs[jobID] = entry
	return nil
}

func (g *MemoryGateway) Log(_ context.Context, jobID string) ([]Event, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, ok := g.logs[jobID]
	if !ok || g.now().After(entry.expires) {
		return nil, nil
	}
	out := make([]Event, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (g *MemoryGateway) SetDecision(_ context.Context, jobID string, d Decision) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.decisions[jobID] = memoryEntry[Decision]{value: d, expires: g.now().Add(TTL)}
	return nil
}

func (g *MemoryGateway) TakeDecision(_ context.Context, jobID string) (Decision, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.decisions[jobID]
	if !ok {
		return "", false, nil
	}
	delete(g.decisions, jobID)
	if g.now().After(entry.expires) {
		return "", false, nil
	}
	return entry.value, true, nil
}
