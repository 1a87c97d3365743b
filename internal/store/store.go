package store

import (
	"context"
	"sync"

	"quotebot/internal/pricing"
)

// Store keeps the most recent quote of each conversation session.
type Store interface {
	// Get returns the session's quote and whether one exists.
	Get(ctx context.Context, sessionID string) (pricing.Quote, bool, error)
	// Put replaces the session's quote.
	Put(ctx context.Context, sessionID string, quote pricing.Quote) error
}

// MemoryStore implements Store with a process-local map. Quotes are lost when
// the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	quotes map[string]pricing.Quote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[string]pricing.Quote)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (pricing.Quote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[sessionID]
	return q, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, quote pricing.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[sessionID] = quote
	return nil
}

// Len returns the number of sessions holding a quote.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}
