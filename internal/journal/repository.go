// Package journal holds the photo entry collection and its snapshot
// persistence.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/photostore"
)

// EntriesKey is the snapshot key the entry collection is stored under.
const EntriesKey = "SavedPhotoEntries"

// snapshotStore is the subset of store.SnapshotStore the repository requires.
type snapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Repository is the ordered collection of photo entries. Every mutation
// rewrites the whole collection under EntriesKey. A single lock serializes
// mutations with each other and with Load and Save.
type Repository struct {
	mu      sync.RWMutex
	entries []domain.PhotoEntry

	snapshots snapshotStore
	blobs     photostore.BlobStore
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Repository)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func NewRepository(snapshots snapshotStore, blobs photostore.BlobStore, logger *slog.Logger, opts ...Option) *Repository {
	r := &Repository{
		snapshots: snapshots,
		blobs:     blobs,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory collection with the persisted snapshot. A
// snapshot that cannot be decoded is discarded and the collection starts
// empty; only a failure to read storage is returned.
func (r *Repository) Load(ctx context.Context) ([]domain.PhotoEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.snapshots.Get(ctx, EntriesKey)
	if err != nil {
		return nil, &domain.PersistenceError{Key: EntriesKey, Err: err}
	}

	r.entries = nil
	if len(data) > 0 {
		var decoded []domain.PhotoEntry
		if err := json.Unmarshal(data, &decoded); err != nil {
			r.logger.Warn("discarding corrupt entry snapshot", "key", EntriesKey, "bytes", len(data), "error", err)
		} else {
			r.entries = decoded
		}
	}

	r.logger.Debug("entries loaded", "count", len(r.entries))
	return cloneEntries(r.entries), nil
}

// Save replaces the collection with entries and persists it.
func (r *Repository) Save(ctx context.Context, entries []domain.PhotoEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := cloneEntries(entries)
	if err := r.persist(ctx, next); err != nil {
		return 0, err
	}
	r.entries = next
	return nil
}

// Entries returns a copy of the collection in display order.
func (r *Repository) Entries() []domain.PhotoEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneEntries(r.entries)
}

func (r *Repository) Get(id uuid.UUID) (domain.PhotoEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return domain.PhotoEntry{}, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	return r.entries[idx].Clone(), nil
}

// Add stores imageData as a new blob and appends an entry referencing it. No
// entry is created when the blob cannot be written, and the blob is removed
// again when the collection cannot be persisted.
func (r *Repository) Add(ctx context.Context, imageData []byte, caption string) (domain.PhotoEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.blobs.Put(ctx, imageData)
	if err != nil {
		return domain.PhotoEntry{}, err
	}

	entry := domain.PhotoEntry{
		ID:        uuid.New(),
		ImageRef:  ref,
		Caption:   caption,
		CreatedAt: r.now().UTC().Round(0),
	}

	next := append(cloneEntries(r.entries), entry)
	if err := r.persist(ctx, next); err != nil {
		r.blobs.Delete(ctx, ref)
		return domain.PhotoEntry{}, err
	}
	r.entries = next

	r.logger.Info("entry added", "entry_id", entry.ID, "ref", ref, "bytes", len(imageData))
	return entry.Clone(), nil
}

// Update replaces the entry with the same id at its current position. The
// stored id, image reference and creation time are kept.
func (r *Repository) Update(ctx context.Context, entry domain.PhotoEntry) error {
	_, err := r.mutate(ctx, entry.ID, func(e *domain.PhotoEntry) error {
		e.Caption = entry.Caption
		e.ItemListData = append([]byte(nil), entry.ItemListData...)
		if len(e.ItemListData) == 0 {
			e.ItemListData = nil
		}
		return nil
	})
	return err
}

func (r *Repository) UpdateCaption(ctx context.Context, id uuid.UUID, caption string) (domain.PhotoEntry, error) {
	return r.mutate(ctx, id, func(e *domain.PhotoEntry) error {
		e.Caption = caption
		return nil
	})
}

// Delete removes the entries at indices, interpreted against the collection
// as it was before the call, and deletes their blobs on a best-effort basis.
// The collection is persisted once for the whole batch. It returns the number
// of entries removed.
func (r *Repository) Delete(ctx context.Context, indices []int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(ctx, indices)
}

// DeleteByID removes a single entry and its blob.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	_, err := r.deleteLocked(ctx, []int{idx})
	return err
}

func (r *Repository) deleteLocked(ctx context.Context, indices []int) (int, error) {
	next, err := domain.RemoveIndices(cloneEntries(r.entries), indices)
	if err != nil {
		return 0, err
	}
	if len(next) == len(r.entries) {
		return 0, nil
	}

	removed := make([]domain.PhotoEntry, 0, len(r.entries)-len(next))
	for _, idx := range uniqueSorted(indices) {
		removed = append(removed, r.entries[idx])
	}

	if err := r.persist(ctx, next); err != nil {
		return 0, err
	}
	r.entries = next

	// Blobs go after the records so a failed persist never leaves entries
	// pointing at deleted files.
	for _, e := range removed {
		r.blobs.Delete(ctx, e.ImageRef)
		r.logger.Info("entry deleted", "entry_id", e.ID, "ref", e.ImageRef)
	}
	return len(removed), nil
}

// AttachItemList stores items as the entry's nested item list. An empty list
// detaches it.
func (r *Repository) AttachItemList(ctx context.Context, id uuid.UUID, items []domain.LineItem) error {
	var data []byte
	if len(items) > 0 {
		for _, item := range items {
			if err := domain.ValidateItem(item); err != nil {
				return err
			}
		}
		var err error
		data, err = json.Marshal(items)
		if err != nil {
			return &domain.PersistenceError{Key: EntriesKey, Err: err}
		}
	}
	_, err := r.mutate(ctx, id, func(e *domain.PhotoEntry) error {
		e.ItemListData = data
		return nil
	})
	return err
}

func (r *Repository) DetachItemList(ctx context.Context, id uuid.UUID) error {
	return r.AttachItemList(ctx, id, nil)
}

// ReadItemList decodes the entry's nested item list. An entry without one
// yields an empty list.
func (r *Repository) ReadItemList(ctx context.Context, id uuid.UUID) ([]domain.LineItem, error) {
	entry, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return DecodeItemList(entry)
}

// DecodeItemList decodes the item list nested in entry.
func DecodeItemList(entry domain.PhotoEntry) ([]domain.LineItem, error) {
	items := []domain.LineItem{}
	if !entry.HasItemList() {
		return items, nil
	}
	if err := json.Unmarshal(entry.ItemListData, &items); err != nil {
		return nil, &domain.PersistenceError{Key: EntriesKey, Err: fmt.Errorf("item list of entry %s: %w", entry.ID, err)}
	}
	return items, nil
}

// mutate applies fn to a copy of the entry with the given id and persists
// the collection with the copy in place.
func (r *Repository) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.PhotoEntry) error) (domain.PhotoEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return domain.PhotoEntry{}, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}

	next := cloneEntries(r.entries)
	if err := fn(&next[idx]); err != nil {
		return domain.PhotoEntry{}, err
	}
	if err := r.persist(ctx, next); err != nil {
		return domain.PhotoEntry{}, err
	}
	r.entries = next
	r.logger.Debug("entry updated", "entry_id", id)
	return next[idx].Clone(), nil
}

// persist must be called with mu held.
func (r *Repository) persist(ctx context.Context, entries []domain.PhotoEntry) error {
	if entries == nil {
		entries = []domain.PhotoEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return &domain.PersistenceError{Key: EntriesKey, Err: err}
	}
	if err := r.snapshots.Put(ctx, EntriesKey, data); err != nil {
		return &domain.PersistenceError{Key: EntriesKey, Err: err}
	}
	return nil
}

func (r *Repository) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(r.entries, func(e domain.PhotoEntry) bool { return e.ID == id })
}

func cloneEntries(entries []domain.PhotoEntry) []domain.PhotoEntry {
	if entries == nil {
		return nil
	}
	out := make([]domain.PhotoEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func uniqueSorted(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}
