package memory

import (
	"context"
	"sync"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MetricsConfig // keyed by user id
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		data: make(map[string]*domain.MetricsConfig),
	}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

func cloneConfig(c *domain.MetricsConfig) *domain.MetricsConfig {
	cfgCopy := *c
	cfgCopy.Windows = append([]int(nil), c.Windows...)
	for _, src := range []struct {
		in  *float64
		out **float64
	}{
		{c.ADFMin, &cfgCopy.ADFMin},
		{c.ZScoreAbsMin, &cfgCopy.ZScoreAbsMin},
		{c.HalfLifeMax, &cfgCopy.HalfLifeMax},
	} {
		if src.in != nil {
			v := *src.in
			*src.out = &v
		}
	}
	return &cfgCopy
}

// GetByUser retrieves one user's configuration.
func (s *ConfigStore) GetByUser(_ context.Context, userID string) (*domain.MetricsConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneConfig(c), nil
}

// Save inserts or replaces one user's configuration.
func (s *ConfigStore) Save(_ context.Context, cfg *domain.MetricsConfig) error {
	if cfg == nil || cfg.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[cfg.UserID] = cloneConfig(cfg)
	return nil
}
