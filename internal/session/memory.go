package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Record)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, username string, rec Record) error {
	s.mu.Lock()
	s.items[username] = rec
	s.mu.Unlock()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, username string) (Record, bool, error) {
	s.mu.RLock()
	rec, ok := s.items[username]
	s.mu.RUnlock()
	return rec, ok, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	delete(s.items, username)
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
