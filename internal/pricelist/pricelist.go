// Package pricelist is the standalone item price list. It is persisted on
// its own and is never reconciled with the item lists nested in entries.
package pricelist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/mystuff/internal/domain"
)

// ItemsKey is the snapshot key the price list is stored under.
const ItemsKey = "SavedItemPrices"

type snapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

type Store struct {
	mu        sync.RWMutex
	list      domain.ItemList
	snapshots snapshotStore
	logger    *slog.Logger
}

func NewStore(snapshots snapshotStore, logger *slog.Logger) *Store {
	return &Store{snapshots: snapshots, logger: logger}
}

// Load reads the persisted list. An undecodable snapshot is discarded.
func (s *Store) Load(ctx context.Context) ([]domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.snapshots.Get(ctx, ItemsKey)
	if err != nil {
		return nil, &domain.PersistenceError{Key: ItemsKey, Err: err}
	}

	s.list = domain.ItemList{}
	if len(data) > 0 {
		var items []domain.LineItem
		if err := json.Unmarshal(data, &items); err != nil {
			s.logger.Warn("discarding corrupt price list snapshot", "key", ItemsKey, "error", err)
		} else {
			s.list = *domain.NewItemList(items)
		}
	}
	return s.list.Items(), nil
}

func (s *Store) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Items()
}

func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Total()
}

func (s *Store) Add(ctx context.Context, name string, price decimal.Decimal) (domain.LineItem, error) {
	var added domain.LineItem
	err := s.edit(ctx, func(l *domain.ItemList) error {
		var err error
		added, err = l.Add(name, price)
		return err
	})
	return added, err
}

func (s *Store) Update(ctx context.Context, item domain.LineItem) error {
	return s.edit(ctx, func(l *domain.ItemList) error { return l.Update(item) })
}

// Delete removes items by their positions before the call.
func (s *Store) Delete(ctx context.Context, indices []int) error {
	return s.edit(ctx, func(l *domain.ItemList) error { return l.Delete(indices) })
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.edit(ctx, func(l *domain.ItemList) error {
		l.Clear()
		return nil
	})
}

// GenerateFromString replaces the whole list with zero-priced items parsed
// from a comma-delimited label string.
func (s *Store) GenerateFromString(ctx context.Context, labels string) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := s.edit(ctx, func(l *domain.ItemList) error {
		*l = *domain.NewItemList(domain.ItemsFromLabels(labels))
		items = l.Items()
		return nil
	})
	return items, err
}

// edit applies fn to a working copy and commits it only once persisted.
func (s *Store) edit(ctx context.Context, fn func(*domain.ItemList) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := domain.NewItemList(s.list.Items())
	if err := fn(working); err != nil {
		return err
	}

	data, err := json.Marshal(working.Items())
	if err != nil {
		return &domain.PersistenceError{Key: ItemsKey, Err: err}
	}
	if err := s.snapshots.Put(ctx, ItemsKey, data); err != nil {
		return &domain.PersistenceError{Key: ItemsKey, Err: err}
	}
	s.list = *working
	s.logger.Debug("price list saved", "items", working.Len())
	return nil
}
