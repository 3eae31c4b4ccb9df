package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/pairid"
	"pairs-lab/internal/storage"
)

// PairStore implements storage.PairStore using PostgreSQL. The base and grid
// evaluation slots are stored as independent JSONB columns, so writing one
// never touches the other.
type PairStore struct {
	pool *Pool
}

// NewPairStore creates a new PairStore.
func NewPairStore(pool *Pool) *PairStore {
	return &PairStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PairStore = (*PairStore)(nil)

const pairColumns = `pair_id, left_ticker, right_ticker, base_window, chosen_window, base_eval, grid_eval, cache_updated_at, created_at`

// GetByID retrieves a pair. Returns ErrNotFound if not exists.
func (s *PairStore) GetByID(ctx context.Context, pairID string) (*domain.PairCandidate, error) {
	query := `SELECT ` + pairColumns + ` FROM pair_candidates WHERE pair_id = $1`

	p, err := scanPair(s.pool.QueryRow(ctx, query, pairID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pair by id: %w", err)
	}
	return p, nil
}

// GetByTickers retrieves a pair by its two legs in either order.
func (s *PairStore) GetByTickers(ctx context.Context, a, b string) (*domain.PairCandidate, error) {
	left, right, err := domain.CanonicalTickers(a, b)
	if err != nil {
		return nil, storage.ErrInvalidInput
	}
	return s.GetByID(ctx, pairid.ForPair(left, right))
}

// List retrieves all pairs ordered by creation time ASC, then id ASC.
func (s *PairStore) List(ctx context.Context) ([]*domain.PairCandidate, error) {
	query := `SELECT ` + pairColumns + ` FROM pair_candidates ORDER BY created_at ASC, pair_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	var pairs []*domain.PairCandidate
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}
	return pairs, nil
}

// ApproveBase persists an approved base evaluation inside one transaction,
// creating the canonical pair when it does not exist yet.
func (s *PairStore) ApproveBase(ctx context.Context, a, b string, eval *domain.BaseEvaluation, at int64) (*domain.PairCandidate, bool, error) {
	left, right, err := domain.CanonicalTickers(a, b)
	if err != nil {
		return nil, false, storage.ErrInvalidInput
	}
	if eval == nil {
		return nil, false, storage.ErrInvalidInput
	}
	pairID := pairid.ForPair(left, right)

	payload, err := json.Marshal(eval)
	if err != nil {
		return nil, false, fmt.Errorf("approve base %s: marshal evaluation: %w", pairID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("approve base %s: begin: %w", pairID, err)
	}
	defer tx.Rollback(ctx)

	var created bool
	row := tx.QueryRow(ctx, `
		UPDATE pair_candidates
		SET base_eval = $2, base_window = $3, cache_updated_at = $4
		WHERE pair_id = $1
		RETURNING `+pairColumns,
		pairID, payload, eval.Window, at,
	)
	pair, err := scanPair(row)
	if isNotFoundError(err) {
		created = true
		row = tx.QueryRow(ctx, `
			INSERT INTO pair_candidates (pair_id, left_ticker, right_ticker, base_window, base_eval, cache_updated_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING `+pairColumns,
			pairID, left, right, eval.Window, payload, at,
		)
		pair, err = scanPair(row)
	}
	if err != nil {
		// A concurrent creator winning the insert race surfaces here as a
		// unique violation.
		if isDuplicateKeyError(err) {
			return nil, false, storage.ErrDuplicateKey
		}
		return nil, false, fmt.Errorf("approve base %s: %w", pairID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("approve base %s: commit: %w", pairID, err)
	}
	return pair, created, nil
}

// RejectBase overwrites the base slot of an already-known pair. Unknown
// pairs are left untouched.
func (s *PairStore) RejectBase(ctx context.Context, a, b string, eval *domain.BaseEvaluation, at int64) (bool, error) {
	left, right, err := domain.CanonicalTickers(a, b)
	if err != nil {
		return false, storage.ErrInvalidInput
	}
	if eval == nil {
		return false, storage.ErrInvalidInput
	}
	pairID := pairid.ForPair(left, right)

	payload, err := json.Marshal(eval)
	if err != nil {
		return false, fmt.Errorf("reject base %s: marshal evaluation: %w", pairID, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE pair_candidates
		SET base_eval = $2, cache_updated_at = $3
		WHERE pair_id = $1`,
		pairID, payload, at,
	)
	if err != nil {
		return false, fmt.Errorf("reject base %s: %w", pairID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SaveGrid persists a grid evaluation, leaving the base slot intact.
func (s *PairStore) SaveGrid(ctx context.Context, pairID string, grid *domain.GridEvaluation, at int64) error {
	if grid == nil {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("save grid %s: marshal evaluation: %w", pairID, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE pair_candidates
		SET grid_eval = $2, cache_updated_at = $3
		WHERE pair_id = $1`,
		pairID, payload, at,
	)
	if err != nil {
		return fmt.Errorf("save grid %s: %w", pairID, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetChosenWindow records the operator-selected trading window.
func (s *PairStore) SetChosenWindow(ctx context.Context, pairID string, window int) error {
	if window <= 0 {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `UPDATE pair_candidates SET chosen_window = $2 WHERE pair_id = $1`, pairID, window)
	if err != nil {
		return fmt.Errorf("set chosen window %s: %w", pairID, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a pair. Returns ErrNotFound if not exists.
func (s *PairStore) Delete(ctx context.Context, pairID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pair_candidates WHERE pair_id = $1`, pairID)
	if err != nil {
		return fmt.Errorf("delete pair %s: %w", pairID, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPair scans a single row into a PairCandidate, decoding the JSONB
// evaluation slots.
func scanPair(row pgx.Row) (*domain.PairCandidate, error) {
	var p domain.PairCandidate
	var baseRaw, gridRaw []byte

	err := row.Scan(
		&p.PairID,
		&p.Left,
		&p.Right,
		&p.BaseWindow,
		&p.ChosenWindow,
		&baseRaw,
		&gridRaw,
		&p.CacheUpdatedAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(baseRaw) > 0 {
		var base domain.BaseEvaluation
		if err := json.Unmarshal(baseRaw, &base); err != nil {
			return nil, fmt.Errorf("decode base evaluation: %w", err)
		}
		p.Base = &base
	}
	if len(gridRaw) > 0 {
		var grid domain.GridEvaluation
		if err := json.Unmarshal(gridRaw, &grid); err != nil {
			return nil, fmt.Errorf("decode grid evaluation: %w", err)
		}
		p.Grid = &grid
	}
	return &p, nil
}
