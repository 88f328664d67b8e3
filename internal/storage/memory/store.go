package memory

import (
	"context"
	"sync"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

var _ ports.KeyValueStore = (*Store)(nil)

// Store is an in-memory implementation of KeyValueStore. Values are lost when
// the process exits.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
