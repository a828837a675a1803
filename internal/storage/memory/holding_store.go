package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

// HoldingStore is an in-memory implementation of storage.HoldingStore.
type HoldingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Holding // keyed by id
}

// NewHoldingStore creates a new in-memory holding store.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{
		data: make(map[string]*domain.Holding),
	}
}

// Insert adds a new holding. Returns ErrDuplicateKey if id exists.
func (s *HoldingStore) Insert(_ context.Context, h *domain.Holding) error {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[h.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *h
	s.data[h.ID] = &copy
	return nil
}

// Update replaces a holding. Returns ErrNotFound if not exists.
func (s *HoldingStore) Update(_ context.Context, h *domain.Holding) error {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[h.ID]; !exists {
		return storage.ErrNotFound
	}

	copy := *h
	s.data[h.ID] = &copy
	return nil
}

// Delete removes a holding. Returns ErrNotFound if not exists.
func (s *HoldingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// GetByID retrieves a holding by its ID. Returns ErrNotFound if not exists.
func (s *HoldingStore) GetByID(_ context.Context, id string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *h
	return &copy, nil
}

// GetAll retrieves all holdings, ordered by buy time ASC.
func (s *HoldingStore) GetAll(_ context.Context) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holding, 0, len(s.data))
	for _, h := range s.data {
		copy := *h
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BuyTime != result[j].BuyTime {
			return result[i].BuyTime < result[j].BuyTime
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.HoldingStore = (*HoldingStore)(nil)
