package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

func TestHoldingStore_InsertAndGet(t *testing.T) {
	store := NewHoldingStore()
	ctx := context.Background()

	h := &domain.Holding{
		ID:           "h1",
		Address:      "mint1",
		Symbol:       "AAA",
		Decimals:     6,
		Amount:       decimal.RequireFromString("1234.5"),
		BuySolAmount: decimal.RequireFromString("0.1"),
		BuyTime:      1000,
	}

	if err := store.Insert(ctx, h); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "h1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Amount.Equal(h.Amount) {
		t.Errorf("Amount mismatch: got %s, want %s", got.Amount, h.Amount)
	}

	// Returned value is a copy.
	got.Symbol = "changed"
	again, _ := store.GetByID(ctx, "h1")
	if again.Symbol != "AAA" {
		t.Errorf("store mutated through returned pointer: %s", again.Symbol)
	}
}

func TestHoldingStore_DuplicateKey(t *testing.T) {
	store := NewHoldingStore()
	ctx := context.Background()

	h := &domain.Holding{ID: "h1", Address: "mint1"}
	if err := store.Insert(ctx, h); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, h)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestHoldingStore_InvalidInput(t *testing.T) {
	store := NewHoldingStore()

	if err := store.Insert(context.Background(), &domain.Holding{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestHoldingStore_UpdateAndDelete(t *testing.T) {
	store := NewHoldingStore()
	ctx := context.Background()

	if err := store.Update(ctx, &domain.Holding{ID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update, got %v", err)
	}

	h := &domain.Holding{ID: "h1", Address: "mint1", Gain: decimal.Zero}
	if err := store.Insert(ctx, h); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	h.Gain = decimal.NewFromInt(42)
	h.CurrentPrice = decimal.RequireFromString("0.002")
	if err := store.Update(ctx, h); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "h1")
	if !got.Gain.Equal(decimal.NewFromInt(42)) {
		t.Errorf("Gain mismatch: got %s", got.Gain)
	}

	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, "h1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "h1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestHoldingStore_GetAllOrdered(t *testing.T) {
	store := NewHoldingStore()
	ctx := context.Background()

	for _, h := range []*domain.Holding{
		{ID: "c", BuyTime: 3000},
		{ID: "a", BuyTime: 1000},
		{ID: "b", BuyTime: 2000},
	} {
		if err := store.Insert(ctx, h); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 holdings, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, all[i].ID, want)
		}
	}
}
