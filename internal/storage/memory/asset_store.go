package memory

import (
	"context"
	"sort"
	"sync"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asset // keyed by ticker
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		data: make(map[string]*domain.Asset),
	}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Insert adds a new asset. Returns ErrDuplicateKey if the ticker exists.
func (s *AssetStore) Insert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.Ticker == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.Ticker]; exists {
		return storage.ErrDuplicateKey
	}

	assetCopy := *a
	s.data[a.Ticker] = &assetCopy
	return nil
}

// GetByTicker retrieves an asset. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByTicker(_ context.Context, ticker string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[ticker]
	if !exists {
		return nil, storage.ErrNotFound
	}

	assetCopy := *a
	return &assetCopy, nil
}

// ListActive retrieves active assets ordered by ticker ASC, falling back to
// every asset when none is flagged active.
func (s *AssetStore) ListActive(_ context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Asset
	for _, a := range s.data {
		if a.Active {
			assetCopy := *a
			result = append(result, &assetCopy)
		}
	}
	if len(result) == 0 {
		for _, a := range s.data {
			assetCopy := *a
			result = append(result, &assetCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}
