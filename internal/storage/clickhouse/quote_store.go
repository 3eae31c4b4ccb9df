package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// QuoteStore implements storage.QuoteStore using ClickHouse.
type QuoteStore struct {
	conn *Conn
}

// NewQuoteStore creates a new QuoteStore.
func NewQuoteStore(conn *Conn) *QuoteStore {
	return &QuoteStore{conn: conn}
}

// Compile-time interface check.
var _ storage.QuoteStore = (*QuoteStore)(nil)

// InsertBulk adds multiple observations. Fails entire batch on duplicate (ticker, date).
func (s *QuoteStore) InsertBulk(ctx context.Context, quotes []*domain.PriceObservation) error {
	if len(quotes) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		ticker string
		day    time.Time
	}
	seen := make(map[key]struct{})
	for _, q := range quotes {
		k := key{q.Ticker, domain.QuoteDay(q.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, q := range quotes {
		exists, err := s.exists(ctx, q.Ticker, domain.QuoteDay(q.Date))
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_quotes (ticker, date, close)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, q := range quotes {
		err = batch.Append(q.Ticker, domain.QuoteDay(q.Date), q.Close)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// RecentCloses retrieves up to limit most recent observations for a ticker,
// returned in chronological (date ASC) order. Unknown tickers yield an empty
// slice.
func (s *QuoteStore) RecentCloses(ctx context.Context, ticker string, limit int) ([]*domain.PriceObservation, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ticker, date, close
		FROM daily_quotes
		WHERE ticker = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, ticker, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent closes: %w", err)
	}
	defer rows.Close()

	var quotes []*domain.PriceObservation
	for rows.Next() {
		var q domain.PriceObservation
		if err := rows.Scan(&q.Ticker, &q.Date, &q.Close); err != nil {
			return nil, fmt.Errorf("scan quote row: %w", err)
		}
		q.Date = domain.QuoteDay(q.Date)
		quotes = append(quotes, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote rows: %w", err)
	}

	// The LIMIT walks newest-first; callers consume oldest-first.
	for i, j := 0, len(quotes)-1; i < j; i, j = i+1, j-1 {
		quotes[i], quotes[j] = quotes[j], quotes[i]
	}

	return quotes, nil
}

// exists checks if an observation with the given key exists.
func (s *QuoteStore) exists(ctx context.Context, ticker string, day time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM daily_quotes
		WHERE ticker = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, ticker, day).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
