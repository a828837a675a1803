package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/observability"
	"solana-swap-engine/internal/storage"
)

// SubmissionStore implements storage.SubmissionStore using ClickHouse.
type SubmissionStore struct {
	conn *Conn
}

// NewSubmissionStore creates a new SubmissionStore.
func NewSubmissionStore(conn *Conn) *SubmissionStore {
	return &SubmissionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SubmissionStore = (*SubmissionStore)(nil)

const submissionColumns = `
	signature, side, mint, status, reason,
	broadcasts, last_valid_block_height, started_at, finished_at
`

// Insert adds a record. Returns ErrDuplicateKey if signature exists.
func (s *SubmissionStore) Insert(ctx context.Context, r *domain.SubmissionRecord) (err error) {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("submission_insert", start, err) }(time.Now())

	// MergeTree does not enforce uniqueness.
	exists, err := s.exists(ctx, r.Signature)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO submissions (`+submissionColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		r.Signature, string(r.Side), r.Mint, r.Status, r.Reason,
		uint32(r.Broadcasts), r.LastValidBlockHeight, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *SubmissionStore) GetBySignature(ctx context.Context, signature string) (r *domain.SubmissionRecord, err error) {
	defer func(start time.Time) { observe("submission_get", start, err) }(time.Now())

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE signature = ? LIMIT 1`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	records, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByTimeRange retrieves records started within [start, end] (inclusive).
func (s *SubmissionStore) GetByTimeRange(ctx context.Context, start, end int64) (records []*domain.SubmissionRecord, err error) {
	defer func(begin time.Time) { observe("submission_range", begin, err) }(time.Now())

	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE started_at >= ? AND started_at <= ?
		ORDER BY started_at ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func (s *SubmissionStore) exists(ctx context.Context, signature string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM submissions WHERE signature = ?`, signature).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSubmissions scans rows selected with submissionColumns.
func scanSubmissions(rows chRows) ([]*domain.SubmissionRecord, error) {
	var records []*domain.SubmissionRecord

	for rows.Next() {
		var (
			r          domain.SubmissionRecord
			side       string
			broadcasts uint32
		)
		err := rows.Scan(
			&r.Signature, &side, &r.Mint, &r.Status, &r.Reason,
			&broadcasts, &r.LastValidBlockHeight, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		r.Side = domain.Side(side)
		r.Broadcasts = int(broadcasts)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	return records, nil
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), err)
}
