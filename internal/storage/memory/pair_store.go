package memory

import (
	"context"
	"sort"
	"sync"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/pairid"
	"pairs-lab/internal/storage"
)

// PairStore is an in-memory implementation of storage.PairStore.
type PairStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PairCandidate // keyed by pair_id
	seq  int64                            // monotonic creation stamp for stable List order
}

// NewPairStore creates a new in-memory pair store.
func NewPairStore() *PairStore {
	return &PairStore{
		data: make(map[string]*domain.PairCandidate),
	}
}

// Compile-time interface check.
var _ storage.PairStore = (*PairStore)(nil)

func clonePair(p *domain.PairCandidate) *domain.PairCandidate {
	pairCopy := *p
	if p.ChosenWindow != nil {
		w := *p.ChosenWindow
		pairCopy.ChosenWindow = &w
	}
	if p.Base != nil {
		base := *p.Base
		pairCopy.Base = &base
	}
	if p.Grid != nil {
		grid := *p.Grid
		grid.Rows = append([]domain.WindowEvaluation(nil), p.Grid.Rows...)
		grid.Windows = append([]int(nil), p.Grid.Windows...)
		if p.Grid.BestWindow != nil {
			w := *p.Grid.BestWindow
			grid.BestWindow = &w
		}
		pairCopy.Grid = &grid
	}
	return &pairCopy
}

// GetByID retrieves a pair. Returns ErrNotFound if not exists.
func (s *PairStore) GetByID(_ context.Context, pairID string) (*domain.PairCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[pairID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePair(p), nil
}

// GetByTickers retrieves a pair by its two legs in either order.
func (s *PairStore) GetByTickers(ctx context.Context, a, b string) (*domain.PairCandidate, error) {
	left, right, err := domain.CanonicalTickers(a, b)
	if err != nil {
		return nil, storage.ErrInvalidInput
	}
	return s.GetByID(ctx, pairid.ForPair(left, right))
}

// List retrieves all pairs ordered by creation ASC, then id ASC.
func (s *PairStore) List(_ context.Context) ([]*domain.PairCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PairCandidate, 0, len(s.data))
	for _, p := range s.data {
		result = append(result, clonePair(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].PairID < result[j].PairID
	})
	return result, nil
}

// ApproveBase persists an approved base evaluation, creating the canonical
// pair when it does not exist yet.
func (s *PairStore) ApproveBase(_ context.Context, left, right string, eval *domain.BaseEvaluation, at int64) (*domain.PairCandidate, bool, error) {
	if eval == nil {
		return nil, false, storage.ErrInvalidInput
	}
	l, r, err := domain.CanonicalTickers(left, right)
	if err != nil {
		return nil, false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := pairid.ForPair(l, r)
	p, exists := s.data[id]
	created := false
	if !exists {
		s.seq++
		p = &domain.PairCandidate{
			PairID:    id,
			Left:      l,
			Right:     r,
			CreatedAt: s.seq,
		}
		s.data[id] = p
		created = true
	}

	base := *eval
	p.Base = &base
	p.BaseWindow = eval.Window
	p.CacheUpdatedAt = at
	return clonePair(p), created, nil
}

// RejectBase overwrites the base slot of an already-known pair. Unknown
// pairs are left untouched.
func (s *PairStore) RejectBase(_ context.Context, left, right string, eval *domain.BaseEvaluation, at int64) (bool, error) {
	if eval == nil {
		return false, storage.ErrInvalidInput
	}
	l, r, err := domain.CanonicalTickers(left, right)
	if err != nil {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[pairid.ForPair(l, r)]
	if !exists {
		return false, nil
	}

	base := *eval
	p.Base = &base
	p.CacheUpdatedAt = at
	return true, nil
}

// SaveGrid persists a grid evaluation, leaving the base slot intact.
func (s *PairStore) SaveGrid(_ context.Context, pairID string, grid *domain.GridEvaluation, at int64) error {
	if grid == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[pairID]
	if !exists {
		return storage.ErrNotFound
	}

	gridCopy := *grid
	gridCopy.Rows = append([]domain.WindowEvaluation(nil), grid.Rows...)
	gridCopy.Windows = append([]int(nil), grid.Windows...)
	if grid.BestWindow != nil {
		w := *grid.BestWindow
		gridCopy.BestWindow = &w
	}
	p.Grid = &gridCopy
	p.CacheUpdatedAt = at
	return nil
}

// SetChosenWindow records the operator-selected trading window.
func (s *PairStore) SetChosenWindow(_ context.Context, pairID string, window int) error {
	if window <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[pairID]
	if !exists {
		return storage.ErrNotFound
	}
	w := window
	p.ChosenWindow = &w
	return nil
}

// Delete removes a pair. Returns ErrNotFound if not exists.
func (s *PairStore) Delete(_ context.Context, pairID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[pairID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, pairID)
	return nil
}
