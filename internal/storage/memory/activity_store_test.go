package memory

import (
	"context"
	"errors"
	"testing"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

func TestActivityStore_InsertAndGet(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	rows := []*domain.TokenActivity{
		{TokenAddress: "mint1", Type: domain.TokenTypeTrading, PriceUSD: 1, ObservedAt: 1000},
		{TokenAddress: "mint2", Type: domain.TokenTypeLaunch, ObservedAt: 1000},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.TokenActivity{
		{TokenAddress: "mint1", Type: domain.TokenTypeTrading, PriceUSD: 2, ObservedAt: 2000},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByMint(ctx, "mint1", 0)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result))
	}
	if result[0].ObservedAt != 2000 || result[1].ObservedAt != 1000 {
		t.Errorf("Expected newest first, got %d, %d", result[0].ObservedAt, result[1].ObservedAt)
	}

	limited, err := store.GetByMint(ctx, "mint1", 1)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(limited) != 1 || limited[0].PriceUSD != 2 {
		t.Errorf("Expected only the newest row, got %+v", limited)
	}

	empty, err := store.GetByMint(ctx, "unknown", 10)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no rows, got %d", len(empty))
	}
}

func TestActivityStore_DuplicateKey(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	row := &domain.TokenActivity{TokenAddress: "mint1", ObservedAt: 1000}
	if err := store.InsertBulk(ctx, []*domain.TokenActivity{row}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Duplicate against existing rows fails the whole batch.
	err := store.InsertBulk(ctx, []*domain.TokenActivity{
		{TokenAddress: "mint2", ObservedAt: 1000},
		{TokenAddress: "mint1", ObservedAt: 1000},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if rows, _ := store.GetByMint(ctx, "mint2", 0); len(rows) != 0 {
		t.Errorf("Expected batch to be rejected atomically, got %d rows", len(rows))
	}

	// Intra-batch duplicate.
	err = store.InsertBulk(ctx, []*domain.TokenActivity{
		{TokenAddress: "mint3", ObservedAt: 5},
		{TokenAddress: "mint3", ObservedAt: 5},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	if err := store.InsertBulk(ctx, []*domain.TokenActivity{{ObservedAt: 1}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
