package postgres

import (
	"context"
	"fmt"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Insert adds a new asset. Returns ErrDuplicateKey if the ticker exists.
func (s *AssetStore) Insert(ctx context.Context, a *domain.Asset) error {
	if a == nil || a.Ticker == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO assets (ticker, name, active)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, a.Ticker, a.Name, a.Active)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByTicker retrieves an asset. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByTicker(ctx context.Context, ticker string) (*domain.Asset, error) {
	query := `
		SELECT ticker, name, active, created_at
		FROM assets
		WHERE ticker = $1
	`

	var a domain.Asset
	err := s.pool.QueryRow(ctx, query, ticker).Scan(&a.Ticker, &a.Name, &a.Active, &a.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by ticker: %w", err)
	}
	return &a, nil
}

// ListActive retrieves active assets ordered by ticker ASC, falling back to
// the whole universe when none is flagged active.
func (s *AssetStore) ListActive(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT ticker, name, active, created_at
		FROM assets
		WHERE active
		ORDER BY ticker ASC
	`

	assets, err := s.queryAssets(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(assets) > 0 {
		return assets, nil
	}

	return s.queryAssets(ctx, `
		SELECT ticker, name, active, created_at
		FROM assets
		ORDER BY ticker ASC
	`)
}

func (s *AssetStore) queryAssets(ctx context.Context, query string) ([]*domain.Asset, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.Ticker, &a.Name, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}
	return assets, nil
}
