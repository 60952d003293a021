package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SnapshotStore persists opaque values under named keys. Each Put replaces
// the previous value in a single statement, so readers see either the old or
// the new value, never a mix.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Get returns the value stored under key, or nil if there is none.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM snapshots WHERE key = ?
	`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %q: %w", key, err)
	}

	return value, nil
}

func (s *SnapshotStore) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to put snapshot %q: %w", key, err)
	}

	return nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE key = ?
	`, key)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, err)
	}

	return nil
}

// Ping reports whether the underlying database is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
