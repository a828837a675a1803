package storage

import (
	"context"

	"solana-swap-engine/internal/domain"
)

// HoldingStore provides access to open positions.
type HoldingStore interface {
	// Insert adds a new holding. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, h *domain.Holding) error

	// Update replaces a holding's tracked fields. Returns ErrNotFound if not exists.
	Update(ctx context.Context, h *domain.Holding) error

	// Delete removes a holding. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a holding by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Holding, error)

	// GetAll retrieves all open holdings, ordered by buy_time ASC.
	GetAll(ctx context.Context) ([]*domain.Holding, error)
}

// HistoryStore provides access to closed positions. Append-only.
type HistoryStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, e *domain.HistoryEntry) error

	// GetAll retrieves all entries, ordered by sell_time ASC.
	GetAll(ctx context.Context) ([]*domain.HistoryEntry, error)

	// GetByAddress retrieves entries for a token mint, ordered by sell_time ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.HistoryEntry, error)
}

// SubmissionStore provides access to submission telemetry. Append-only.
type SubmissionStore interface {
	// Insert adds a submission record. Returns ErrDuplicateKey if signature exists.
	Insert(ctx context.Context, r *domain.SubmissionRecord) error

	// GetBySignature retrieves a record by signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.SubmissionRecord, error)

	// GetByTimeRange retrieves records started within [start, end] (inclusive), ordered by started_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SubmissionRecord, error)
}
