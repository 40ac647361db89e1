package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/pkg/metrics"
)

const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeVersionMismatch = "version_mismatch"
	ErrCodeInternal        = "internal"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError for JSON serialization.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: APIError{Code: code, Message: message},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// writeStoreError maps repository errors onto the error envelope.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		metrics.APIConflicts.WithLabelValues(r.Pattern).Inc()
		writeError(w, http.StatusConflict, ErrCodeVersionMismatch, err.Error())
	default:
		s.logger.Error("store failure", "route", r.Pattern, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
