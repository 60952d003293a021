package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/photostore"
	"github.com/vbonduro/mystuff/internal/service"
	"github.com/vbonduro/mystuff/internal/vision"
)

// writeJSON writes v as JSON with the given status code. Encoding errors are
// discarded.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps err to a status code and writes a JSON error body. Outside
// development, 5xx messages are replaced by the status text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if !s.opts.IsDevelopment && status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	}
	writeJSONError(w, status, msg)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var analysis *vision.AnalysisError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge // 413
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, photostore.ErrNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, domain.ErrInvalidItem):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusBadRequest // 400
	case errors.Is(err, domain.ErrEmptyCollection):
		return http.StatusConflict // 409
	case errors.Is(err, domain.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType // 415
	case errors.Is(err, domain.ErrCredentialRequired):
		return http.StatusPreconditionRequired // 428
	case errors.Is(err, service.ErrAPIKeyNotUsed):
		return http.StatusBadRequest // 400
	case errors.Is(err, service.ErrAnalysisUnavailable):
		return http.StatusServiceUnavailable // 503
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, service.ErrNoLabels):
		return http.StatusConflict // 409
	case errors.As(err, &analysis):
		switch analysis.Kind {
		case vision.Timeout:
			return http.StatusGatewayTimeout // 504
		case vision.ImageProcessingFailed:
			return http.StatusUnprocessableEntity // 422
		default:
			return http.StatusBadGateway // 502
		}
	default:
		return http.StatusInternalServerError // 500
	}
}

// decodeJSON decodes the request body into dst and validates it. On failure it
// writes the error response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeError(w, r, err)
			return false
		}
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "request body required")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := domain.Validate(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": domain.FormatValidationErrors(err),
		})
		return false
	}
	return true
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
