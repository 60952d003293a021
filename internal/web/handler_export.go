package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/mystuff/internal/export"
)

func (s *Server) handleCollectionPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.RenderCollection(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePDF(w, export.CollectionFileName(s.service.AppName(), s.service.Now()), doc)
}

func (s *Server) handleEntryItemsPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	doc, err := s.service.RenderEntryItems(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePDF(w, export.ItemListFileName(s.service.Now()), doc)
}

func (s *Server) handlePriceListPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.RenderPriceList()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePDF(w, export.ItemListFileName(s.service.Now()), doc)
}

// writePDF sends doc as a download. Entries left out of a collection are
// counted in X-Skipped-Entries.
func (s *Server) writePDF(w http.ResponseWriter, name string, doc *export.Document) {
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	h.Set("Content-Length", strconv.Itoa(len(doc.Data)))
	h.Set("X-Page-Count", strconv.Itoa(doc.Pages))
	if len(doc.Skipped) > 0 {
		h.Set("X-Skipped-Entries", strconv.Itoa(len(doc.Skipped)))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		s.logger.Error("write pdf failed", "name", name, "error", err)
	}
}
