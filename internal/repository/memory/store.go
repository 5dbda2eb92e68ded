// Package memory contains a process-lifetime implementation of repository.KV.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/enlite/internal/repository"
)

// Store keeps values in memory. The zero value is not usable; use New.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ repository.KV = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{data: map[string]string{}}
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Clear drops all keys.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = map[string]string{}
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
