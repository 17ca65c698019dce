package store

import (
	"context"
	"sync"

	"seedfund/internal/investment"
	"seedfund/pkg/platform/sentinel"
)

// InMemoryStore keeps investments in process for tests and single-node runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[string]investment.Investment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]investment.Investment)}
}

func (s *InMemoryStore) Save(_ context.Context, inv investment.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[inv.TransactionID] = inv
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, transactionID string) (investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byID[transactionID]
	if !ok {
		return investment.Investment{}, sentinel.ErrNotFound
	}
	return inv, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]investment.Investment, 0, len(s.byID))
	for _, inv := range s.byID {
		out = append(out, inv)
	}
	return out, nil
}
