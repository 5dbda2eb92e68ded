// Package file contains a JSON-file implementation of repository.KV,
// kept under the user's config directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/enlite/internal/repository"
)

const fileName = "session.json"

// DefaultDir returns $XDG_CONFIG_HOME/enlite, or ~/.config/enlite.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "enlite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "enlite")
}

// Store persists all keys as one JSON object. Every write rewrites the file.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ repository.KV = (*Store)(nil)

// New returns a store backed by dir/session.json. The directory is created lazily.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{path: filepath.Join(dir, fileName)}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

// Clear removes the backing file.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file.Clear: %w", err)
	}
	return nil
}

func (s *Store) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file.load: %w", err)
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("file.load %s: %w", s.path, err)
	}
	return m, nil
}

// save writes to a temp file in the same directory and renames it into place.
func (s *Store) save(m map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("file.save: %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("file.save: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file.save: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file.save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file.save: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
