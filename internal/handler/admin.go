package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/uwuntu/keyhub/internal/auth"
	"github.com/uwuntu/keyhub/internal/handler/dto"
	"github.com/uwuntu/keyhub/internal/service"
)

// exportFilename is the attachment name of the CSV export.
const exportFilename = "users.csv"

// AdminHandler provides the admin user management endpoints.
// Every route is mounted behind middleware.RequireAdmin.
type AdminHandler struct {
	svc    *service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

// ListUsers handles GET /admin/api/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserListResponse{Users: users})
}

// RevokeKey handles POST /admin/api/user/{id}/revoke.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "user ID must be numeric")
		return
	}

	if err := h.svc.RevokeKey(r.Context(), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("admin revoked key",
		slog.Int64("admin_id", auth.AdminIDFromContext(r.Context())),
		slog.Int64("user_id", id),
	)
	writeJSON(w, http.StatusOK, dto.OK)
}

// DeleteUser handles POST /admin/api/user/{id}/delete.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "user ID must be numeric")
		return
	}

	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("admin deleted user",
		slog.Int64("admin_id", auth.AdminIDFromContext(r.Context())),
		slog.Int64("user_id", id),
	)
	writeJSON(w, http.StatusOK, dto.OK)
}

// Export handles GET /admin/api/export.
// The document is built before any header is written so failures stay JSON.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), &buf); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
