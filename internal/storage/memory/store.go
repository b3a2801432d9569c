package memory

import (
	"context"
	"sync"

	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

func (s *Store) Close() error { return nil }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, key)
	return nil
}
