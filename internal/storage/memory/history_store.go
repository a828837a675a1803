package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.HistoryEntry // keyed by id
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[string]*domain.HistoryEntry),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if id exists.
func (s *HistoryStore) Insert(_ context.Context, e *domain.HistoryEntry) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.ID] = &copy
	return nil
}

// GetAll retrieves all entries, ordered by sell time ASC.
func (s *HistoryStore) GetAll(_ context.Context) ([]*domain.HistoryEntry, error) {
	return s.filter(func(*domain.HistoryEntry) bool { return true }), nil
}

// GetByAddress retrieves entries for a token mint, ordered by sell time ASC.
func (s *HistoryStore) GetByAddress(_ context.Context, address string) ([]*domain.HistoryEntry, error) {
	return s.filter(func(e *domain.HistoryEntry) bool { return e.Address == address }), nil
}

func (s *HistoryStore) filter(keep func(*domain.HistoryEntry) bool) []*domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoryEntry
	for _, e := range s.data {
		if keep(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SellTime != result[j].SellTime {
			return result[i].SellTime < result[j].SellTime
		}
		return result[i].ID < result[j].ID
	})

	return result
}

var _ storage.HistoryStore = (*HistoryStore)(nil)
