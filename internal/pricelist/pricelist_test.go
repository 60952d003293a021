package pricelist

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mystuff/internal/db"
	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.SnapshotStore) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	snapshots := store.NewSnapshotStore(d)
	return NewStore(snapshots, slog.Default()), snapshots
}

func names(items []domain.LineItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func TestStoreAddAndReload(t *testing.T) {
	s, snapshots := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "Apples", decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	_, err = s.Add(ctx, "Bread", decimal.RequireFromString("3.00"))
	require.NoError(t, err)

	reloaded := NewStore(snapshots, slog.Default())
	items, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apples", "Bread"}, names(items))
	assert.Equal(t, "4.50", reloaded.Total().StringFixed(2))
}

func TestStoreAddDefaultPriceKeepsTotal(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "Apples", decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	before := s.Total()

	_, err = s.Add(ctx, "Napkins", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, before.Equal(s.Total()))
}

func TestStoreAddInvalidIsNotPersisted(t *testing.T) {
	s, snapshots := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "", decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrInvalidItem))

	value, err := snapshots.Get(ctx, ItemsKey)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStoreUpdate(t *testing.T) {
	s, snapshots := newTestStore(t)
	ctx := context.Background()

	item, err := s.Add(ctx, "Milk", decimal.Zero)
	require.NoError(t, err)
	item.Price = decimal.RequireFromString("2.25")
	require.NoError(t, s.Update(ctx, item))

	reloaded := NewStore(snapshots, slog.Default())
	items, err := reloaded.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, "2.25", items[0].Price.StringFixed(2))
}

func TestStoreDeleteUsesOriginalIndices(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, n := range []string{"a", "b", "c"} {
		_, err := s.Add(ctx, n, decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	require.NoError(t, s.Delete(ctx, []int{0, 2}))
	assert.Equal(t, []string{"b"}, names(s.Items()))
	assert.Equal(t, "1.00", s.Total().StringFixed(2))
}

func TestStoreDeleteAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "a", decimal.NewFromInt(3))
	require.NoError(t, err)
	require.NoError(t, s.DeleteAll(ctx))

	assert.Empty(t, s.Items())
	assert.True(t, s.Total().IsZero())
}

func TestStoreGenerateFromStringReplaces(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "old", decimal.NewFromInt(9))
	require.NoError(t, err)

	items, err := s.GenerateFromString(ctx, "milk, eggs, , bread ,")
	require.NoError(t, err)
	assert.Equal(t, []string{"milk", "eggs", "bread"}, names(items))
	assert.Equal(t, []string{"milk", "eggs", "bread"}, names(s.Items()))
	assert.True(t, s.Total().IsZero())
}

func TestStoreLoadDiscardsCorrupt(t *testing.T) {
	s, snapshots := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, snapshots.Put(ctx, ItemsKey, []byte("[{")))

	items, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStoreFailedWriteKeepsPreviousState(t *testing.T) {
	s := NewStore(failingPut{}, slog.Default())

	_, err := s.Add(context.Background(), "a", decimal.Zero)
	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ItemsKey, perr.Key)
	assert.Empty(t, s.Items())
}

type failingPut struct{}

func (failingPut) Get(context.Context, string) ([]byte, error) { return nil, nil }
func (failingPut) Put(context.Context, string, []byte) error  { return errors.New("read-only") }
