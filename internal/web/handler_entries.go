package web

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vbonduro/mystuff/internal/domain"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. The WHATWG sniffing algorithm has no WebP signature, so WebP is
// detected separately.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type entryResponse struct {
	ID          uuid.UUID `json:"id"`
	Caption     string    `json:"caption"`
	CreatedAt   time.Time `json:"created_at"`
	HasItemList bool      `json:"has_item_list"`
	PhotoURL    string    `json:"photo_url"`
}

func toEntryResponse(e domain.PhotoEntry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Caption:     e.Caption,
		CreatedAt:   e.CreatedAt,
		HasItemList: e.HasItemList(),
		PhotoURL:    fmt.Sprintf("/entries/%s/photo", e.ID),
	}
}

type captionRequest struct {
	Caption string `json:"caption" validate:"max=2000"`
}

type indicesRequest struct {
	Indices []int `json:"indices" validate:"required,min=1"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, _ *http.Request) {
	entries := s.service.ListEntries()
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			s.writeError(w, r, err)
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.writeError(w, r, domain.ErrUnsupportedImage)
		return
	}
	s.logger.Debug("photo uploaded", "mime", mimeType, "bytes", len(imageData))

	entry, err := s.service.AddPhoto(r.Context(), imageData, r.FormValue("caption"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	entry, err := s.service.GetEntry(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleUpdateCaption(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req captionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	entry, err := s.service.UpdateCaption(r.Context(), id, req.Caption)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteEntry(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteEntries removes entries by display position. Every index refers
// to the list as it was before the request.
func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	var req indicesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	n, err := s.service.DeleteEntries(r.Context(), req.Indices)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("entries deleted", "count", n)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	data, err := s.service.Photo(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write photo failed", "entry_id", id, "error", err)
	}
}

// parseID extracts the {id} path variable. An invalid id is answered with a
// 400 and false is returned.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
