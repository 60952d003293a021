package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/export"
	"github.com/vbonduro/mystuff/internal/imaging"
	"github.com/vbonduro/mystuff/internal/metrics"
	"github.com/vbonduro/mystuff/internal/photostore"
	"github.com/vbonduro/mystuff/internal/vision"
)

var (
	// ErrAnalysisUnavailable is returned when no vision backend is configured.
	ErrAnalysisUnavailable = errors.New("image analysis is not configured")
	// ErrAPIKeyNotUsed is returned when setting a key for a backend that
	// takes none.
	ErrAPIKeyNotUsed = errors.New("backend does not use an api key")
)

// entryRepository is the subset of journal.Repository that JournalService requires.
type entryRepository interface {
	Load(ctx context.Context) ([]domain.PhotoEntry, error)
	Entries() []domain.PhotoEntry
	Get(id uuid.UUID) (domain.PhotoEntry, error)
	Add(ctx context.Context, imageData []byte, caption string) (domain.PhotoEntry, error)
	UpdateCaption(ctx context.Context, id uuid.UUID, caption string) (domain.PhotoEntry, error)
	Delete(ctx context.Context, indices []int) (int, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	AttachItemList(ctx context.Context, id uuid.UUID, items []domain.LineItem) error
	DetachItemList(ctx context.Context, id uuid.UUID) error
	ReadItemList(ctx context.Context, id uuid.UUID) ([]domain.LineItem, error)
}

// priceList is the subset of pricelist.Store that JournalService requires.
type priceList interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Items() []domain.LineItem
	Total() decimal.Decimal
	Add(ctx context.Context, name string, price decimal.Decimal) (domain.LineItem, error)
	Update(ctx context.Context, item domain.LineItem) error
	Delete(ctx context.Context, indices []int) error
	DeleteAll(ctx context.Context) error
	GenerateFromString(ctx context.Context, labels string) ([]domain.LineItem, error)
}

// credentialStore is the subset of credentials.Store that JournalService requires.
type credentialStore interface {
	Backend() string
	Configured() bool
	Set(ctx context.Context, key string) error
}

// Deps are the collaborators of a JournalService. Analyzer may be nil when no
// vision backend is configured, and Credentials may be nil when the backend
// needs no key.
type Deps struct {
	Entries     entryRepository
	Prices      priceList
	Blobs       photostore.BlobStore
	Engine      *export.Engine
	Analyzer    vision.Analyzer
	Backend     string
	Credentials credentialStore
	Metrics     *metrics.Metrics
	ExportDir   string
	Logger      *slog.Logger
	Now         func() time.Time
}

type JournalService struct {
	entries   entryRepository
	prices    priceList
	blobs     photostore.BlobStore
	engine    *export.Engine
	analyzer  vision.Analyzer
	backend   string
	creds     credentialStore
	metrics   *metrics.Metrics
	exportDir string
	logger    *slog.Logger
	now       func() time.Time
}

func NewJournalService(deps Deps) *JournalService {
	s := &JournalService{
		entries:   deps.Entries,
		prices:    deps.Prices,
		blobs:     deps.Blobs,
		engine:    deps.Engine,
		analyzer:  deps.Analyzer,
		backend:   deps.Backend,
		creds:     deps.Credentials,
		metrics:   deps.Metrics,
		exportDir: deps.ExportDir,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// Load reads the persisted entries and price list.
func (s *JournalService) Load(ctx context.Context) error {
	entries, err := s.entries.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}
	prices, err := s.prices.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load price list: %w", err)
	}
	s.logger.Info("journal loaded", "entries", len(entries), "prices", len(prices))
	return nil
}

// AddPhoto stores imageData re-encoded as JPEG and appends a new entry.
func (s *JournalService) AddPhoto(ctx context.Context, imageData []byte, caption string) (domain.PhotoEntry, error) {
	s.logger.Info("add photo started", "bytes", len(imageData))

	jpeg, err := imaging.NormalizeJPEG(imageData)
	if err != nil {
		return domain.PhotoEntry{}, err
	}
	entry, err := s.entries.Add(ctx, jpeg, strings.TrimSpace(caption))
	if err != nil {
		s.logger.Error("failed to add entry", "error", err)
		return domain.PhotoEntry{}, err
	}
	s.metrics.EntryAdded()
	return entry, nil
}

func (s *JournalService) ListEntries() []domain.PhotoEntry {
	return s.entries.Entries()
}

func (s *JournalService) GetEntry(id uuid.UUID) (domain.PhotoEntry, error) {
	return s.entries.Get(id)
}

// Photo returns the stored image of an entry. A missing blob yields
// photostore.ErrNotFound.
func (s *JournalService) Photo(ctx context.Context, id uuid.UUID) ([]byte, error) {
	entry, err := s.entries.Get(id)
	if err != nil {
		return nil, err
	}
	return s.blobs.Get(ctx, entry.ImageRef)
}

func (s *JournalService) UpdateCaption(ctx context.Context, id uuid.UUID, caption string) (domain.PhotoEntry, error) {
	return s.entries.UpdateCaption(ctx, id, strings.TrimSpace(caption))
}

// DeleteEntries removes entries by their positions in ListEntries and
// returns how many were removed.
func (s *JournalService) DeleteEntries(ctx context.Context, indices []int) (int, error) {
	n, err := s.entries.Delete(ctx, indices)
	if err != nil {
		return 0, err
	}
	s.metrics.EntriesDeleted(n)
	return n, nil
}

func (s *JournalService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.entries.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.metrics.EntriesDeleted(1)
	return nil
}

// ItemInput is a line item as entered by a user. A zero ID gets a fresh one.
type ItemInput struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// SetEntryItems replaces the item list attached to an entry. An empty list
// detaches it.
func (s *JournalService) SetEntryItems(ctx context.Context, id uuid.UUID, inputs []ItemInput) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := domain.NewLineItem(in.Name, in.Price)
		if err != nil {
			return nil, err
		}
		if in.ID != uuid.Nil {
			item.ID = in.ID
		}
		items = append(items, item)
	}
	if err := s.entries.AttachItemList(ctx, id, items); err != nil {
		return nil, err
	}
	return items, nil
}

// EntryItems returns an entry's item list and its total.
func (s *JournalService) EntryItems(ctx context.Context, id uuid.UUID) ([]domain.LineItem, decimal.Decimal, error) {
	items, err := s.entries.ReadItemList(ctx, id)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return items, domain.TotalPrice(items), nil
}

func (s *JournalService) ClearEntryItems(ctx context.Context, id uuid.UUID) error {
	return s.entries.DetachItemList(ctx, id)
}

// Prices returns the standalone price list and its total.
func (s *JournalService) Prices() ([]domain.LineItem, decimal.Decimal) {
	return s.prices.Items(), s.prices.Total()
}

func (s *JournalService) AddPrice(ctx context.Context, name string, price decimal.Decimal) (domain.LineItem, error) {
	return s.prices.Add(ctx, name, price)
}

func (s *JournalService) UpdatePrice(ctx context.Context, item domain.LineItem) error {
	return s.prices.Update(ctx, item)
}

func (s *JournalService) DeletePrices(ctx context.Context, indices []int) error {
	return s.prices.Delete(ctx, indices)
}

func (s *JournalService) ClearPrices(ctx context.Context) error {
	return s.prices.DeleteAll(ctx)
}

// GeneratePrices replaces the price list with zero-priced items parsed from a
// comma-delimited label string.
func (s *JournalService) GeneratePrices(ctx context.Context, labels string) ([]domain.LineItem, error) {
	return s.prices.GenerateFromString(ctx, labels)
}

// Backend names the configured vision backend.
func (s *JournalService) Backend() string { return s.backend }

// APIKeyConfigured reports whether analysis can run without asking for a key.
func (s *JournalService) APIKeyConfigured() bool {
	return s.creds == nil || s.creds.Configured()
}

func (s *JournalService) SetAPIKey(ctx context.Context, key string) error {
	if s.creds == nil {
		return fmt.Errorf("%s: %w", s.backend, ErrAPIKeyNotUsed)
	}
	return s.creds.Set(ctx, key)
}

// AppName is the display name used in exported documents.
func (s *JournalService) AppName() string { return s.engine.AppName() }

// FormatPrice displays amount in the configured currency.
func (s *JournalService) FormatPrice(amount decimal.Decimal) string {
	return s.engine.FormatPrice(amount)
}

// Now is the service clock, used to stamp export file names.
func (s *JournalService) Now() time.Time { return s.now() }
