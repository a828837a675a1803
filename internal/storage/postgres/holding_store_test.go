package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

func createTestHolding(id string, buyTime int64) *domain.Holding {
	return &domain.Holding{
		ID:           id,
		Address:      "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Name:         "Test Token",
		Symbol:       "TEST",
		Decimals:     6,
		CurrentPrice: decimal.RequireFromString("0.000123456789"),
		BuyPrice:     decimal.RequireFromString("0.0001"),
		Amount:       decimal.RequireFromString("1234567.891234"),
		BuySolAmount: decimal.RequireFromString("-0.100005"),
		BuyTime:      buyTime,
		Gain:         decimal.Zero,
		BuySignature: "sig-" + id,
	}
}

func TestHoldingStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(pool)

	h := createTestHolding("holding-001", 1000)
	require.NoError(t, store.Insert(ctx, h))

	got, err := store.GetByID(ctx, "holding-001")
	require.NoError(t, err)
	assert.Equal(t, h.Address, got.Address)
	assert.Equal(t, h.Decimals, got.Decimals)
	assert.True(t, h.Amount.Equal(got.Amount), "amount %s != %s", got.Amount, h.Amount)
	assert.True(t, h.CurrentPrice.Equal(got.CurrentPrice))
	assert.True(t, h.BuySolAmount.Equal(got.BuySolAmount))

	err = store.Insert(ctx, h)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestHoldingStore_UpdateDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(pool)

	h := createTestHolding("holding-002", 2000)
	require.NoError(t, store.Insert(ctx, h))

	h.Gain = decimal.RequireFromString("37.5")
	require.NoError(t, store.Update(ctx, h))

	got, err := store.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "37.5", got.Gain.String())

	require.NoError(t, store.Delete(ctx, h.ID))
	_, err = store.GetByID(ctx, h.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, h.ID), storage.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, h), storage.ErrNotFound)
}

func TestHoldingStore_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(pool)

	require.NoError(t, store.Insert(ctx, createTestHolding("b", 2000)))
	require.NoError(t, store.Insert(ctx, createTestHolding("a", 1000)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}
