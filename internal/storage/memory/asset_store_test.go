package memory

import (
	"context"
	"errors"
	"testing"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/storage"
)

func TestAssetStore_InsertAndGet(t *testing.T) {
	store := NewAssetStore()
	ctx := context.Background()

	a := &domain.Asset{Ticker: "ABEV3", Name: "Ambev", Active: true}
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTicker(ctx, "ABEV3")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	if got.Name != "Ambev" {
		t.Errorf("Name = %s, want Ambev", got.Name)
	}

	if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestAssetStore_ListActiveFiltersAndSorts(t *testing.T) {
	store := NewAssetStore()
	ctx := context.Background()

	for _, a := range []*domain.Asset{
		{Ticker: "PETR4", Active: true},
		{Ticker: "ABEV3", Active: true},
		{Ticker: "VALE3", Active: false},
	} {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Ticker != "ABEV3" || got[1].Ticker != "PETR4" {
		t.Errorf("order = %s, %s, want ABEV3, PETR4", got[0].Ticker, got[1].Ticker)
	}
}

func TestAssetStore_ListActiveFallsBackToAll(t *testing.T) {
	store := NewAssetStore()
	ctx := context.Background()

	for _, a := range []*domain.Asset{
		{Ticker: "PETR4", Active: false},
		{Ticker: "ABEV3", Active: false},
	} {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (fallback to all)", len(got))
	}
}

func TestConfigStore_RoundTrip(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	if _, err := store.GetByUser(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for unknown user", err)
	}

	adf := 90.0
	cfg := &domain.MetricsConfig{
		UserID:     "u1",
		Windows:    []int{100, 120, 140},
		BaseWindow: 140,
		ADFMin:     &adf,
		BetaWindow: 5,
	}
	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.GetByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if got.BaseWindow != 140 || len(got.Windows) != 3 || got.ADFMin == nil || *got.ADFMin != 90.0 {
		t.Errorf("config round-trip mismatch: %+v", got)
	}

	// Mutating the returned copy must not affect the stored value.
	got.Windows[0] = 999
	again, _ := store.GetByUser(ctx, "u1")
	if again.Windows[0] != 100 {
		t.Error("store leaked internal slice")
	}
}
