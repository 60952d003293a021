// Package credentials keeps the API key of each vision backend in the local
// snapshot store.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vbonduro/mystuff/internal/domain"
)

const keyPrefix = "apiKey."

type snapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store holds the credential of a single backend.
type Store struct {
	mu        sync.RWMutex
	backend   string
	key       string
	snapshots snapshotStore
	logger    *slog.Logger
}

func NewStore(snapshots snapshotStore, backend string, logger *slog.Logger) *Store {
	return &Store{snapshots: snapshots, backend: backend, logger: logger}
}

func (s *Store) snapshotKey() string { return keyPrefix + s.backend }

func (s *Store) Backend() string { return s.backend }

// Load reads the stored key. When nothing is stored and seed is non-blank,
// seed is persisted and used instead.
func (s *Store) Load(ctx context.Context, seed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.snapshots.Get(ctx, s.snapshotKey())
	if err != nil {
		return &domain.PersistenceError{Key: s.snapshotKey(), Err: err}
	}
	s.key = strings.TrimSpace(string(data))
	if s.key != "" {
		return nil
	}

	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil
	}
	if err := s.snapshots.Put(ctx, s.snapshotKey(), []byte(seed)); err != nil {
		return &domain.PersistenceError{Key: s.snapshotKey(), Err: err}
	}
	s.key = seed
	s.logger.Info("api key seeded from environment", "backend", s.backend)
	return nil
}

// Set trims and persists key. A blank key clears the credential.
func (s *Store) Set(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	var err error
	if key == "" {
		err = s.snapshots.Delete(ctx, s.snapshotKey())
	} else {
		err = s.snapshots.Put(ctx, s.snapshotKey(), []byte(key))
	}
	if err != nil {
		return &domain.PersistenceError{Key: s.snapshotKey(), Err: err}
	}
	s.key = key
	s.logger.Info("api key updated", "backend", s.backend, "configured", key != "")
	return nil
}

func (s *Store) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != ""
}

// Key returns the credential, or domain.ErrCredentialRequired when none is set.
func (s *Store) Key() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == "" {
		return "", fmt.Errorf("%s: %w", s.backend, domain.ErrCredentialRequired)
	}
	return s.key, nil
}
