package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestQuoteStore_InsertAndRecentCloses(t *testing.T) {
	store := NewQuoteStore()
	ctx := context.Background()

	quotes := []*domain.PriceObservation{
		{Ticker: "ABEV3", Date: day(2), Close: 14.2},
		{Ticker: "ABEV3", Date: day(0), Close: 14.0},
		{Ticker: "ABEV3", Date: day(1), Close: 14.1},
	}
	if err := store.InsertBulk(ctx, quotes); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.RecentCloses(ctx, "ABEV3", 10)
	if err != nil {
		t.Fatalf("RecentCloses failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Chronological order regardless of insert order.
	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Errorf("observations not in date ASC order at %d", i)
		}
	}
}

func TestQuoteStore_RecentClosesLimit(t *testing.T) {
	store := NewQuoteStore()
	ctx := context.Background()

	var quotes []*domain.PriceObservation
	for i := 0; i < 10; i++ {
		quotes = append(quotes, &domain.PriceObservation{Ticker: "ITUB4", Date: day(i), Close: float64(30 + i)})
	}
	if err := store.InsertBulk(ctx, quotes); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.RecentCloses(ctx, "ITUB4", 4)
	if err != nil {
		t.Fatalf("RecentCloses failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	// The 4 most recent, still ASC.
	if !got[0].Date.Equal(day(6)) || !got[3].Date.Equal(day(9)) {
		t.Errorf("window = [%v .. %v], want [day 6 .. day 9]", got[0].Date, got[3].Date)
	}
}

func TestQuoteStore_UnknownTickerEmpty(t *testing.T) {
	store := NewQuoteStore()
	got, err := store.RecentCloses(context.Background(), "XXXX9", 50)
	if err != nil {
		t.Fatalf("RecentCloses failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0 for unknown ticker", len(got))
	}
}

func TestQuoteStore_DuplicateDateFailsBatch(t *testing.T) {
	store := NewQuoteStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PriceObservation{
		{Ticker: "ABEV3", Date: day(0), Close: 14.0},
	}); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.PriceObservation{
		{Ticker: "ABEV3", Date: day(1), Close: 14.1},
		{Ticker: "ABEV3", Date: day(0), Close: 99.9}, // duplicate
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}

	// Entire batch rejected: day(1) must not be visible.
	got, _ := store.RecentCloses(ctx, "ABEV3", 10)
	if len(got) != 1 {
		t.Errorf("len = %d, want 1 after failed batch", len(got))
	}
}
