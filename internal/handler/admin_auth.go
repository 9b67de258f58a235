package handler

import (
	"log/slog"
	"net/http"

	"github.com/uwuntu/keyhub/internal/handler/dto"
	"github.com/uwuntu/keyhub/internal/service"
	"github.com/uwuntu/keyhub/internal/session"
)

// AdminAuthHandler handles admin registration and session endpoints.
type AdminAuthHandler struct {
	svc     *service.AdminAuthService
	cookies *session.CookieCodec
	logger  *slog.Logger
}

// NewAdminAuthHandler creates a new AdminAuthHandler.
func NewAdminAuthHandler(svc *service.AdminAuthService, cookies *session.CookieCodec, logger *slog.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{svc: svc, cookies: cookies, logger: logger}
}

// Register handles POST /admin/register.
func (h *AdminAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	id, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterResponse{Success: true, AdminID: id})
}

// Login handles POST /admin/login and sets the session cookie.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.cookies.SetCookie(w, sess)
	writeJSON(w, http.StatusOK, dto.OK)
}

// Logout handles POST /admin/logout. It always succeeds.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, err := h.cookies.SessionID(r); err == nil {
		if err := h.svc.Logout(r.Context(), id); err != nil {
			h.logger.Warn("failed to destroy session", slog.String("error", err.Error()))
		}
	}

	h.cookies.ClearCookie(w)
	writeJSON(w, http.StatusOK, dto.OK)
}
