package memory

import (
	"context"
	"sync"

	"statusboard/internal/core/domain"
)

// Store keeps the single latest snapshot in process memory. A Replace swaps in
// a new immutable value, so readers see either the old or the new snapshot.
type Store struct {
	mu     sync.RWMutex
	latest *domain.Received
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Latest(ctx context.Context) (*domain.Received, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, nil
}

func (s *Store) Replace(rec *domain.Received) {
	s.mu.Lock()
	s.latest = rec
	s.mu.Unlock()
}
