package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

// HoldingStore implements storage.HoldingStore using PostgreSQL.
type HoldingStore struct {
	pool *Pool
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(pool *Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

const holdingColumns = `
	id, address, name, symbol, decimals,
	current_price::text, buy_price::text, amount::text, buy_sol_amount::text,
	buy_time, gain::text, buy_signature
`

// Insert adds a new holding. Returns ErrDuplicateKey if id exists.
func (s *HoldingStore) Insert(ctx context.Context, h *domain.Holding) (err error) {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("holding_insert", start, err) }(time.Now())

	query := `
		INSERT INTO holdings (
			id, address, name, symbol, decimals,
			current_price, buy_price, amount, buy_sol_amount,
			buy_time, gain, buy_signature
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)
	`

	_, err = s.pool.Exec(ctx, query,
		h.ID, h.Address, h.Name, h.Symbol, h.Decimals,
		h.CurrentPrice.String(), h.BuyPrice.String(), h.Amount.String(), h.BuySolAmount.String(),
		h.BuyTime, h.Gain.String(), h.BuySignature,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert holding: %w", err)
	}
	return nil
}

// Update replaces the tracked fields of a holding. Returns ErrNotFound if not exists.
func (s *HoldingStore) Update(ctx context.Context, h *domain.Holding) (err error) {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("holding_update", start, err) }(time.Now())

	query := `
		UPDATE holdings SET
			name = $2, symbol = $3, decimals = $4,
			current_price = $5, buy_price = $6, amount = $7, buy_sol_amount = $8,
			buy_time = $9, gain = $10, buy_signature = $11
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		h.ID, h.Name, h.Symbol, h.Decimals,
		h.CurrentPrice.String(), h.BuyPrice.String(), h.Amount.String(), h.BuySolAmount.String(),
		h.BuyTime, h.Gain.String(), h.BuySignature,
	)
	if err != nil {
		return fmt.Errorf("update holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a holding. Returns ErrNotFound if not exists.
func (s *HoldingStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("holding_delete", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM holdings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a holding by its ID. Returns ErrNotFound if not exists.
func (s *HoldingStore) GetByID(ctx context.Context, id string) (h *domain.Holding, err error) {
	defer func(start time.Time) { observe("holding_get", start, err) }(time.Now())

	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE id = $1`

	h, err = scanHolding(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holding by id: %w", err)
	}
	return h, nil
}

// GetAll retrieves all holdings, ordered by buy_time ASC.
func (s *HoldingStore) GetAll(ctx context.Context) (holdings []*domain.Holding, err error) {
	defer func(start time.Time) { observe("holding_list", start, err) }(time.Now())

	query := `SELECT ` + holdingColumns + ` FROM holdings ORDER BY buy_time ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all holdings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holding row: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holding rows: %w", err)
	}
	return holdings, nil
}

// scanHolding scans a single row selected with holdingColumns.
func scanHolding(row pgx.Row) (*domain.Holding, error) {
	var (
		h                                      domain.Holding
		currentPrice, buyPrice, amount, buySol string
		gain                                   string
	)

	err := row.Scan(
		&h.ID, &h.Address, &h.Name, &h.Symbol, &h.Decimals,
		&currentPrice, &buyPrice, &amount, &buySol,
		&h.BuyTime, &gain, &h.BuySignature,
	)
	if err != nil {
		return nil, err
	}

	if h.CurrentPrice, err = parseNumeric(currentPrice); err != nil {
		return nil, err
	}
	if h.BuyPrice, err = parseNumeric(buyPrice); err != nil {
		return nil, err
	}
	if h.Amount, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	if h.BuySolAmount, err = parseNumeric(buySol); err != nil {
		return nil, err
	}
	if h.Gain, err = parseNumeric(gain); err != nil {
		return nil, err
	}
	return &h, nil
}
