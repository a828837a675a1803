package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

// HistoryStore implements storage.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *Pool
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(pool *Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

const historyColumns = `
	id, holding_id, address, name, symbol, decimals,
	buy_price::text, buy_sol_amount::text, buy_time, amount::text,
	sell_price::text, sell_sol_amount::text, sell_time, gain::text,
	buy_signature, sell_signature
`

// Insert adds a new entry. Returns ErrDuplicateKey if id exists.
func (s *HistoryStore) Insert(ctx context.Context, e *domain.HistoryEntry) (err error) {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("history_insert", start, err) }(time.Now())

	query := `
		INSERT INTO history (
			id, holding_id, address, name, symbol, decimals,
			buy_price, buy_sol_amount, buy_time, amount,
			sell_price, sell_sol_amount, sell_time, gain,
			buy_signature, sell_signature
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16
		)
	`

	_, err = s.pool.Exec(ctx, query,
		e.ID, e.HoldingID, e.Address, e.Name, e.Symbol, e.Decimals,
		e.BuyPrice.String(), e.BuySolAmount.String(), e.BuyTime, e.Amount.String(),
		e.SellPrice.String(), e.SellSolAmount.String(), e.SellTime, e.Gain.String(),
		e.BuySignature, e.SellSignature,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// GetAll retrieves all entries, ordered by sell_time ASC.
func (s *HistoryStore) GetAll(ctx context.Context) (entries []*domain.HistoryEntry, err error) {
	defer func(start time.Time) { observe("history_list", start, err) }(time.Now())

	query := `SELECT ` + historyColumns + ` FROM history ORDER BY sell_time ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all history: %w", err)
	}
	defer rows.Close()

	return scanHistoryEntries(rows)
}

// GetByAddress retrieves entries for a token mint, ordered by sell_time ASC.
func (s *HistoryStore) GetByAddress(ctx context.Context, address string) (entries []*domain.HistoryEntry, err error) {
	defer func(start time.Time) { observe("history_by_address", start, err) }(time.Now())

	query := `SELECT ` + historyColumns + ` FROM history WHERE address = $1 ORDER BY sell_time ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get history by address: %w", err)
	}
	defer rows.Close()

	return scanHistoryEntries(rows)
}

// scanHistoryEntries scans rows selected with historyColumns.
func scanHistoryEntries(rows pgx.Rows) ([]*domain.HistoryEntry, error) {
	var entries []*domain.HistoryEntry

	for rows.Next() {
		var (
			e                        domain.HistoryEntry
			buyPrice, buySol, amount string
			sellPrice, sellSol, gain string
		)

		err := rows.Scan(
			&e.ID, &e.HoldingID, &e.Address, &e.Name, &e.Symbol, &e.Decimals,
			&buyPrice, &buySol, &e.BuyTime, &amount,
			&sellPrice, &sellSol, &e.SellTime, &gain,
			&e.BuySignature, &e.SellSignature,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		if e.BuyPrice, err = parseNumeric(buyPrice); err != nil {
			return nil, err
		}
		if e.BuySolAmount, err = parseNumeric(buySol); err != nil {
			return nil, err
		}
		if e.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		if e.SellPrice, err = parseNumeric(sellPrice); err != nil {
			return nil, err
		}
		if e.SellSolAmount, err = parseNumeric(sellSol); err != nil {
			return nil, err
		}
		if e.Gain, err = parseNumeric(gain); err != nil {
			return nil, err
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
