package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/export"
	"github.com/vbonduro/mystuff/internal/photostore"
)

const (
	kindCollection = "collection"
	kindItemList   = "item_list"
)

// Exported describes a PDF written to the export directory.
type Exported struct {
	Path    string
	Pages   int
	Skipped []uuid.UUID
}

// RenderCollection builds the photo collection document. Entries whose image
// cannot be read are skipped.
func (s *JournalService) RenderCollection(ctx context.Context) (*export.Document, error) {
	entries := s.entries.Entries()
	pages := make([]export.PhotoPage, 0, len(entries))
	for _, entry := range entries {
		data, err := s.blobs.Get(ctx, entry.ImageRef)
		switch {
		case errors.Is(err, photostore.ErrNotFound):
			s.logger.Warn("photo missing from store", "entry_id", entry.ID, "ref", entry.ImageRef)
			data = nil
		case err != nil:
			s.logger.Warn("failed to read photo", "entry_id", entry.ID, "error", err)
			data = nil
		}
		pages = append(pages, export.PhotoPage{Entry: entry, Image: data})
	}

	start := time.Now()
	doc, err := s.engine.Collection(pages)
	s.observeExport(kindCollection, doc, start, err)
	if err != nil {
		return nil, err
	}
	if len(doc.Skipped) > 0 {
		s.logger.Warn("entries skipped from collection", "count", len(doc.Skipped))
	}
	return doc, nil
}

// ExportCollection renders the collection and writes it under the export
// directory.
func (s *JournalService) ExportCollection(ctx context.Context) (Exported, error) {
	doc, err := s.RenderCollection(ctx)
	if err != nil {
		return Exported{}, err
	}
	return s.write(export.CollectionFileName(s.engine.AppName(), s.now()), doc)
}

// RenderEntryItems builds the item list document of a single entry, titled
// with its caption.
func (s *JournalService) RenderEntryItems(ctx context.Context, id uuid.UUID) (*export.Document, error) {
	entry, err := s.entries.Get(id)
	if err != nil {
		return nil, err
	}
	items, err := s.entries.ReadItemList(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderItems(entry.Caption, items)
}

func (s *JournalService) ExportEntryItems(ctx context.Context, id uuid.UUID) (Exported, error) {
	doc, err := s.RenderEntryItems(ctx, id)
	if err != nil {
		return Exported{}, err
	}
	return s.write(export.ItemListFileName(s.now()), doc)
}

// RenderPriceList builds the document for the standalone price list.
func (s *JournalService) RenderPriceList() (*export.Document, error) {
	return s.renderItems("", s.prices.Items())
}

func (s *JournalService) ExportPriceList() (Exported, error) {
	doc, err := s.RenderPriceList()
	if err != nil {
		return Exported{}, err
	}
	return s.write(export.ItemListFileName(s.now()), doc)
}

func (s *JournalService) renderItems(title string, items []domain.LineItem) (*export.Document, error) {
	start := time.Now()
	doc, err := s.engine.ItemList(title, items)
	s.observeExport(kindItemList, doc, start, err)
	return doc, err
}

func (s *JournalService) write(name string, doc *export.Document) (Exported, error) {
	path, err := export.WriteFile(s.exportDir, name, doc.Data)
	if err != nil {
		s.logger.Error("failed to write export", "name", name, "error", err)
		return Exported{}, err
	}
	s.logger.Info("export written", "path", path, "pages", doc.Pages)
	return Exported{Path: path, Pages: doc.Pages, Skipped: doc.Skipped}, nil
}

func (s *JournalService) observeExport(kind string, doc *export.Document, start time.Time, err error) {
	pages := 0
	if doc != nil {
		pages = doc.Pages
	}
	s.metrics.ObserveExport(kind, pages, time.Since(start), err)
}
