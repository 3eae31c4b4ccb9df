package memory

import (
	"context"
	"sort"
	"sync"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

// QuoteStore is an in-memory implementation of storage.QuoteStore.
type QuoteStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PriceObservation // ticker -> observations, date ASC
}

// NewQuoteStore creates a new in-memory quote store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{
		data: make(map[string][]*domain.PriceObservation),
	}
}

// Compile-time interface check.
var _ storage.QuoteStore = (*QuoteStore)(nil)

// InsertBulk adds multiple observations. Fails the entire batch on a
// duplicate (ticker, date), leaving the store unchanged.
func (s *QuoteStore) InsertBulk(_ context.Context, quotes []*domain.PriceObservation) error {
	if len(quotes) == 0 {
		return nil
	}
	for _, q := range quotes {
		if q == nil || q.Ticker == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		ticker string
		day    int64
	}
	seen := make(map[key]struct{})
	for _, q := range quotes {
		k := key{q.Ticker, domain.QuoteDay(q.Date).Unix()}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}
	for _, q := range quotes {
		day := domain.QuoteDay(q.Date)
		for _, existing := range s.data[q.Ticker] {
			if existing.Date.Equal(day) {
				return storage.ErrDuplicateKey
			}
		}
	}

	for _, q := range quotes {
		obs := &domain.PriceObservation{
			Ticker: q.Ticker,
			Date:   domain.QuoteDay(q.Date),
			Close:  q.Close,
		}
		s.data[q.Ticker] = append(s.data[q.Ticker], obs)
	}
	for ticker := range s.data {
		series := s.data[ticker]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
	}
	return nil
}

// RecentCloses retrieves up to limit most recent observations, date ASC.
// Unknown tickers yield an empty slice.
func (s *QuoteStore) RecentCloses(_ context.Context, ticker string, limit int) ([]*domain.PriceObservation, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.data[ticker]
	start := 0
	if len(series) > limit {
		start = len(series) - limit
	}

	result := make([]*domain.PriceObservation, 0, len(series)-start)
	for _, q := range series[start:] {
		obsCopy := *q
		result = append(result, &obsCopy)
	}
	return result, nil
}
