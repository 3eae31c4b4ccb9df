package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// GetByUser retrieves one user's configuration. Returns ErrNotFound when the
// user has none.
func (s *ConfigStore) GetByUser(ctx context.Context, userID string) (*domain.MetricsConfig, error) {
	query := `
		SELECT user_id, windows, base_window, adf_min, zscore_abs_min, half_life_max, beta_window
		FROM metric_configs
		WHERE user_id = $1
	`

	var cfg domain.MetricsConfig
	var windowsRaw []byte
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&cfg.UserID,
		&windowsRaw,
		&cfg.BaseWindow,
		&cfg.ADFMin,
		&cfg.ZScoreAbsMin,
		&cfg.HalfLifeMax,
		&cfg.BetaWindow,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get config by user: %w", err)
	}

	if len(windowsRaw) > 0 {
		if err := json.Unmarshal(windowsRaw, &cfg.Windows); err != nil {
			return nil, fmt.Errorf("decode config windows: %w", err)
		}
	}
	return &cfg, nil
}

// Save inserts or replaces one user's configuration.
func (s *ConfigStore) Save(ctx context.Context, cfg *domain.MetricsConfig) error {
	if cfg == nil || cfg.UserID == "" {
		return storage.ErrInvalidInput
	}

	windows := cfg.Windows
	if windows == nil {
		windows = []int{}
	}
	windowsRaw, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("save config: marshal windows: %w", err)
	}

	query := `
		INSERT INTO metric_configs (user_id, windows, base_window, adf_min, zscore_abs_min, half_life_max, beta_window)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			windows = EXCLUDED.windows,
			base_window = EXCLUDED.base_window,
			adf_min = EXCLUDED.adf_min,
			zscore_abs_min = EXCLUDED.zscore_abs_min,
			half_life_max = EXCLUDED.half_life_max,
			beta_window = EXCLUDED.beta_window
	`

	_, err = s.pool.Exec(ctx, query,
		cfg.UserID,
		windowsRaw,
		cfg.BaseWindow,
		cfg.ADFMin,
		cfg.ZScoreAbsMin,
		cfg.HalfLifeMax,
		cfg.BetaWindow,
	)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
