package local

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/photostore"
)

func TestBlobStorePutAndGet(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewBlobStore(tmpdir, slog.Default())
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake jpeg data")

	ref, err := store.Put(ctx, imageData)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"))
	assert.Len(t, strings.TrimSuffix(ref, ".jpg"), 36)

	data, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)

	_, err = os.Stat(filepath.Join(tmpdir, ref))
	assert.NoError(t, err)
}

func TestBlobStorePutGeneratesUniqueRefs(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), slog.Default())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Put(ctx, []byte("a"))
	require.NoError(t, err)
	second, err := store.Put(ctx, []byte("a"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBlobStorePutFailsWhenDirectoryMissing(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewBlobStore(tmpdir, slog.Default())
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(tmpdir))

	_, err = store.Put(context.Background(), []byte("data"))
	var ioErr *domain.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestBlobStoreDelete(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), slog.Default())
	require.NoError(t, err)

	ctx := context.Background()
	ref, err := store.Put(ctx, []byte("test data"))
	require.NoError(t, err)

	store.Delete(ctx, ref)

	_, err = store.Get(ctx, ref)
	assert.True(t, errors.Is(err, photostore.ErrNotFound))
}

func TestBlobStoreDeleteMissingIsSilent(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), slog.Default())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		store.Delete(context.Background(), "nonexistent.jpg")
	})
}

func TestBlobStoreNotFound(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), slog.Default())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nonexistent.jpg")
	assert.True(t, errors.Is(err, photostore.ErrNotFound))
}

func TestBlobStorePathTraversal(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewBlobStore(filepath.Join(tmpdir, "photos"), slog.Default())
	require.NoError(t, err)

	secret := filepath.Join(tmpdir, "secret.jpg")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0600))

	ctx := context.Background()
	_, err = store.Get(ctx, "../secret.jpg")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, photostore.ErrNotFound))

	store.Delete(ctx, "../secret.jpg")
	_, err = os.Stat(secret)
	assert.NoError(t, err)
}
