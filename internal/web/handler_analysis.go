package web

import (
	"net/http"

	"github.com/vbonduro/mystuff/internal/domain"
)

type analysisResponse struct {
	Labels string         `json:"labels"`
	Entry  *entryResponse `json:"entry,omitempty"`
	Items  []itemResponse `json:"items,omitempty"`
}

type apiKeyRequest struct {
	Key string `json:"key"`
}

type apiKeyResponse struct {
	Backend    string `json:"backend"`
	Configured bool   `json:"configured"`
}

// handleAnalyze labels the entry's photo. With ?apply=caption the labels
// become the caption; with ?apply=items they replace the entry's item list.
// A client that disconnects before the result arrives closes the session and
// nothing is applied.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	apply := r.URL.Query().Get("apply")
	switch apply {
	case "", "none", "caption", "items":
	default:
		writeJSONError(w, http.StatusBadRequest, "apply must be caption or items")
		return
	}

	session, err := s.service.StartAnalysis(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	labels, err := session.Wait(r.Context())
	if err != nil {
		session.Close()
		s.writeError(w, r, err)
		return
	}

	resp := analysisResponse{Labels: labels}
	switch apply {
	case "caption":
		entry, err := session.ApplyCaption(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		er := toEntryResponse(entry)
		resp.Entry = &er
	case "items":
		items, err := session.ApplyItems(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Items = s.toItemList(items, domain.TotalPrice(items)).Items
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAPIKey(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, apiKeyResponse{
		Backend:    s.service.Backend(),
		Configured: s.service.APIKeyConfigured(),
	})
}

// handlePutAPIKey stores the key for the active backend. A blank key clears
// it. The key itself is never echoed back.
func (s *Server) handlePutAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.service.SetAPIKey(r.Context(), req.Key); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiKeyResponse{
		Backend:    s.service.Backend(),
		Configured: s.service.APIKeyConfigured(),
	})
}
