package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/service"
)

type itemResponse struct {
	domain.LineItem
	PriceDisplay string `json:"price_display"`
}

type itemListResponse struct {
	Items        []itemResponse  `json:"items"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
}

func (s *Server) toItemList(items []domain.LineItem, total decimal.Decimal) itemListResponse {
	out := itemListResponse{
		Items:        make([]itemResponse, len(items)),
		Total:        total,
		TotalDisplay: s.service.FormatPrice(total),
	}
	for i, item := range items {
		out.Items[i] = itemResponse{LineItem: item, PriceDisplay: s.service.FormatPrice(item.Price)}
	}
	return out
}

type itemsRequest struct {
	Items []service.ItemInput `json:"items" validate:"dive"`
}

type generateRequest struct {
	Labels string `json:"labels" validate:"required"`
}

func (s *Server) handleGetEntryItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	items, total, err := s.service.EntryItems(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toItemList(items, total))
}

// handlePutEntryItems replaces the entry's item list. An empty list detaches
// it.
func (s *Server) handlePutEntryItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req itemsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	items, err := s.service.SetEntryItems(r.Context(), id, req.Items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toItemList(items, domain.TotalPrice(items)))
}

func (s *Server) handleDeleteEntryItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.service.ClearEntryItems(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrices(w http.ResponseWriter, _ *http.Request) {
	items, total := s.service.Prices()
	writeJSON(w, http.StatusOK, s.toItemList(items, total))
}

func (s *Server) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	var req service.ItemInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	item, err := s.service.AddPrice(r.Context(), req.Name, req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemResponse{LineItem: item, PriceDisplay: s.service.FormatPrice(item.Price)})
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req service.ItemInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	item := domain.LineItem{ID: id, Name: req.Name, Price: req.Price}
	if err := s.service.UpdatePrice(r.Context(), item); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, total := s.service.Prices()
	writeJSON(w, http.StatusOK, s.toItemList(items, total))
}

func (s *Server) handleDeletePrices(w http.ResponseWriter, r *http.Request) {
	var req indicesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.service.DeletePrices(r.Context(), req.Indices); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearPrices(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearPrices(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGeneratePrices replaces the price list with zero-priced items built
// from a comma-delimited label string.
func (s *Server) handleGeneratePrices(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	items, err := s.service.GeneratePrices(r.Context(), req.Labels)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toItemList(items, domain.TotalPrice(items)))
}
