package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/uwuntu/keyhub/internal/auth"
	"github.com/uwuntu/keyhub/internal/session"
)

// Authenticator resolves a session ID to an admin session. Unknown, expired
// and anonymous sessions are reported as session.ErrNotFound.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionID string) (*session.Session, error)
}

// AdminAuthConfig holds configuration for the admin session guard.
type AdminAuthConfig struct {
	Logger  *slog.Logger
	Auth    Authenticator
	Cookies *session.CookieCodec
}

// RequireAdmin rejects requests without a valid admin session cookie.
// On success the admin identity is added to the request context.
func RequireAdmin(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := cfg.Cookies.SessionID(r)
			if err != nil {
				reject(cfg.Logger, w, r, "invalid_cookie")
				return
			}

			sess, err := cfg.Auth.Authenticate(r.Context(), sessionID)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					reject(cfg.Logger, w, r, "unknown_session")
					return
				}
				cfg.Logger.Error("session lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}

			admin := &auth.Admin{
				ID:        sess.Data.AdminID,
				Email:     sess.Data.Email,
				SessionID: sess.ID,
			}
			noteAdmin(r, admin)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAdmin(r.Context(), admin)))
		})
	}
}

func reject(logger *slog.Logger, w http.ResponseWriter, r *http.Request, reason string) {
	logger.Warn("admin authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
}
