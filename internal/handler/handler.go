// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uwuntu/keyhub/internal/handler/dto"
	"github.com/uwuntu/keyhub/internal/middleware"
	"github.com/uwuntu/keyhub/internal/service"
)

// Handler serves the endpoints that have no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Test is a connectivity probe for clients.
// GET /api/test
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.TestResponse{
		Status:  "ok",
		Message: "API is working",
		Time:    time.Now().UTC(),
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeDecodeError reports a body that could not be decoded. Bodies cut off
// by MaxBodySize get 413 like an oversized Content-Length does.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
}

// userIDParam parses the {id} path parameter.
func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses.
// Unexpected errors are logged and reported without detail.
func handleServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrMissingField):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrMissingKey):
		writeError(w, http.StatusBadRequest, "MISSING_KEY", err.Error())
	case errors.Is(err, service.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
	case errors.Is(err, service.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "DUPLICATE_EMAIL", err.Error())
	case errors.Is(err, service.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "DUPLICATE_KEY", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	default:
		logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
