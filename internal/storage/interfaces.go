package storage

import (
	"context"

	"pairs-lab/internal/domain"
)

// AssetStore provides access to the instrument universe.
type AssetStore interface {
	// Insert adds a new asset. Returns ErrDuplicateKey if the ticker exists.
	Insert(ctx context.Context, a *domain.Asset) error

	// GetByTicker retrieves an asset. Returns ErrNotFound if not exists.
	GetByTicker(ctx context.Context, ticker string) (*domain.Asset, error)

	// ListActive retrieves active assets ordered by ticker ASC. When no
	// asset is flagged active it falls back to the whole universe.
	ListActive(ctx context.Context) ([]*domain.Asset, error)
}

// QuoteStore provides access to daily closing prices.
type QuoteStore interface {
	// InsertBulk adds multiple observations. Fails the entire batch on a
	// duplicate (ticker, date).
	InsertBulk(ctx context.Context, quotes []*domain.PriceObservation) error

	// RecentCloses retrieves up to limit most recent observations for one
	// ticker, returned in chronological (date ASC) order. Unknown tickers
	// yield an empty slice, not an error.
	RecentCloses(ctx context.Context, ticker string, limit int) ([]*domain.PriceObservation, error)
}

// PairStore provides access to pair candidates and their evaluation slots.
//
// ApproveBase and RejectBase encode the no-clutter policy of the base
// builder: an approval persists the pair (creating it when unknown), while a
// rejection only updates pairs that already exist, so a previously-unknown
// combination that fails on first sight leaves no row behind. Both writes
// are atomic per pair.
type PairStore interface {
	// GetByID retrieves a pair. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, pairID string) (*domain.PairCandidate, error)

	// GetByTickers retrieves a pair by its two legs in either order.
	GetByTickers(ctx context.Context, a, b string) (*domain.PairCandidate, error)

	// List retrieves all pairs ordered by creation time ASC, then id ASC.
	List(ctx context.Context) ([]*domain.PairCandidate, error)

	// ApproveBase persists an approved base evaluation, creating the
	// canonical pair when it does not exist yet. Reports whether the pair
	// was created by this call.
	ApproveBase(ctx context.Context, left, right string, eval *domain.BaseEvaluation, at int64) (pair *domain.PairCandidate, created bool, err error)

	// RejectBase overwrites the base slot of an already-known pair with the
	// rejection outcome. Unknown pairs are left untouched; the return
	// reports whether the pair existed.
	RejectBase(ctx context.Context, left, right string, eval *domain.BaseEvaluation, at int64) (existed bool, err error)

	// SaveGrid persists a grid evaluation, leaving the base slot intact.
	SaveGrid(ctx context.Context, pairID string, grid *domain.GridEvaluation, at int64) error

	// SetChosenWindow records the operator-selected trading window.
	SetChosenWindow(ctx context.Context, pairID string, window int) error

	// Delete removes a pair. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, pairID string) error
}

// ConfigStore provides per-user metric configuration.
type ConfigStore interface {
	// GetByUser retrieves one user's configuration. Returns ErrNotFound
	// when the user has none; callers fall back to the process defaults.
	GetByUser(ctx context.Context, userID string) (*domain.MetricsConfig, error)

	// Save inserts or replaces one user's configuration.
	Save(ctx context.Context, cfg *domain.MetricsConfig) error
}
