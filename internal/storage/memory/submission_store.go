package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

// SubmissionStore is an in-memory implementation of storage.SubmissionStore.
type SubmissionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SubmissionRecord // keyed by signature
}

// NewSubmissionStore creates a new in-memory submission store.
func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		data: make(map[string]*domain.SubmissionRecord),
	}
}

// Insert adds a record. Returns ErrDuplicateKey if signature exists.
func (s *SubmissionStore) Insert(_ context.Context, r *domain.SubmissionRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.Signature] = &copy
	return nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *SubmissionStore) GetBySignature(_ context.Context, signature string) (*domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByTimeRange retrieves records started within [start, end] (inclusive).
func (s *SubmissionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SubmissionRecord
	for _, r := range s.data {
		if r.StartedAt >= start && r.StartedAt <= end {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt < result[j].StartedAt
	})

	return result, nil
}

var _ storage.SubmissionStore = (*SubmissionStore)(nil)
