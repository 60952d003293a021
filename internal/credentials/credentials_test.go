package credentials

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mystuff/internal/db"
	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/store"
)

func newSnapshots(t *testing.T) *store.SnapshotStore {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return store.NewSnapshotStore(d)
}

func TestStoreRequiresKey(t *testing.T) {
	s := NewStore(newSnapshots(t), "openai", slog.Default())
	require.NoError(t, s.Load(context.Background(), ""))

	assert.False(t, s.Configured())
	_, err := s.Key()
	assert.True(t, errors.Is(err, domain.ErrCredentialRequired))
}

func TestStoreSetTrimsAndPersists(t *testing.T) {
	snapshots := newSnapshots(t)
	ctx := context.Background()

	s := NewStore(snapshots, "openai", slog.Default())
	require.NoError(t, s.Set(ctx, "  sk-test\n"))

	reloaded := NewStore(snapshots, "openai", slog.Default())
	require.NoError(t, reloaded.Load(ctx, ""))
	key, err := reloaded.Key()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestStoreBlankKeyClears(t *testing.T) {
	snapshots := newSnapshots(t)
	ctx := context.Background()

	s := NewStore(snapshots, "openai", slog.Default())
	require.NoError(t, s.Set(ctx, "sk-test"))
	require.NoError(t, s.Set(ctx, "   "))
	assert.False(t, s.Configured())

	value, err := snapshots.Get(ctx, "apiKey.openai")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStoreSeedOnlyWhenEmpty(t *testing.T) {
	snapshots := newSnapshots(t)
	ctx := context.Background()

	s := NewStore(snapshots, "claude", slog.Default())
	require.NoError(t, s.Load(ctx, " from-env "))
	key, err := s.Key()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	require.NoError(t, s.Set(ctx, "from-user"))

	reloaded := NewStore(snapshots, "claude", slog.Default())
	require.NoError(t, reloaded.Load(ctx, "from-env"))
	key, err = reloaded.Key()
	require.NoError(t, err)
	assert.Equal(t, "from-user", key)
}

func TestStoreKeysAreScopedByBackend(t *testing.T) {
	snapshots := newSnapshots(t)
	ctx := context.Background()

	require.NoError(t, NewStore(snapshots, "openai", slog.Default()).Set(ctx, "sk-openai"))

	other := NewStore(snapshots, "gemini", slog.Default())
	require.NoError(t, other.Load(ctx, ""))
	assert.False(t, other.Configured())
}
