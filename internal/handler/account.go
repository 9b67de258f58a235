package handler

import (
	"log/slog"
	"net/http"

	"github.com/uwuntu/keyhub/internal/handler/dto"
	"github.com/uwuntu/keyhub/internal/service"
)

// AccountHandler handles key issuance and presence requests.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// GenerateKey handles GET /api/generate-key.
func (h *AccountHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.GenerateKey()
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// SaveUser handles POST /api/save-user.
func (h *AccountHandler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	rec, err := h.svc.SaveUser(r.Context(), service.SaveUserInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		APIKey:    req.APIKey,
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SaveUserResponse{Success: true, User: *rec})
}

// Validate handles GET /api/validate?key=.
func (h *AccountHandler) Validate(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ValidateKey(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToValidateKeyResponse(result))
}

// Online handles POST /api/user/{id}/online.
func (h *AccountHandler) Online(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "user ID must be numeric")
		return
	}

	if err := h.svc.SetOnline(r.Context(), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.OK)
}

// Offline handles POST /api/user/{id}/offline.
func (h *AccountHandler) Offline(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "user ID must be numeric")
		return
	}

	if err := h.svc.SetOffline(r.Context(), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.OK)
}
