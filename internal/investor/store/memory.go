package store

import (
	"context"
	"strings"
	"sync"

	"seedfund/internal/investor"
	"seedfund/pkg/platform/sentinel"
)

// InMemoryStore keeps investors in process. Email uniqueness is enforced the
// same way the postgres store does, so tests exercise identical semantics.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]investor.Investor
	byEmail map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]investor.Investor),
		byEmail: make(map[string]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, inv investor.Investor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(inv.Email)
	if existing, ok := s.byEmail[email]; ok && existing != inv.ID {
		return sentinel.ErrConflict
	}
	s.byID[inv.ID] = inv
	s.byEmail[email] = inv.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (investor.Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.byID[id]
	if !ok {
		return investor.Investor{}, sentinel.ErrNotFound
	}
	return inv, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
