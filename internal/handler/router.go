package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/middleware"
	"github.com/uwuntu/keyhub/internal/service"
	"github.com/uwuntu/keyhub/internal/session"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Logger *slog.Logger

	Account   *service.AccountService
	AdminAuth *service.AdminAuthService
	Admin     *service.AdminService

	Cookies *session.CookieCodec

	// DB and Cache back /readyz. Cache may be nil.
	DB    HealthChecker
	Cache HealthChecker

	Metrics metrics.Snapshotter

	// Login rate limiting. A nil LoginLimiter disables it.
	LoginLimiter     middleware.LoginLimiter
	LoginRateLimited bool
	LoginRPM         int
	LoginBurst       int

	// TrustProxyHeaders lets RealIP rewrite RemoteAddr from forwarding headers.
	TrustProxyHeaders bool

	CORSAllowedOrigins []string
	IsDevelopment      bool
	MaxRequestBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	h := New()
	healthHandler := NewHealthHandler(cfg.DB, cfg.Cache)
	metricsHandler := NewMetricsHandler(cfg.Metrics)
	accountHandler := NewAccountHandler(cfg.Account, cfg.Logger)
	adminAuthHandler := NewAdminAuthHandler(cfg.AdminAuth, cfg.Cookies, cfg.Logger)
	adminHandler := NewAdminHandler(cfg.Admin, cfg.Logger)

	maxBody := cfg.MaxRequestBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultSecurityConfig().MaxRequestBodySize
	}

	r := chi.NewRouter()

	// Global middleware
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment,
		MaxRequestBodySize: maxBody,
	}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))
	r.Use(middleware.MaxBodySize(maxBody))

	// Probes
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Public client API
	r.Route("/api", func(r chi.Router) {
		r.Get("/test", h.Test)
		r.Get("/generate-key", accountHandler.GenerateKey)
		r.Post("/save-user", accountHandler.SaveUser)
		r.Get("/validate", accountHandler.Validate)
		r.Post("/user/{id}/online", accountHandler.Online)
		r.Post("/user/{id}/offline", accountHandler.Offline)
	})

	loginLimit := middleware.RateLimitLogin(middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.LoginLimiter,
		Enabled: cfg.LoginRateLimited,
		RPM:     cfg.LoginRPM,
		Burst:   cfg.LoginBurst,
	})

	// Admin session endpoints and the guarded management API
	r.Route("/admin", func(r chi.Router) {
		r.Post("/register", adminAuthHandler.Register)
		r.With(loginLimit).Post("/login", adminAuthHandler.Login)
		r.Post("/logout", adminAuthHandler.Logout)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(middleware.AdminAuthConfig{
				Logger:  cfg.Logger,
				Auth:    cfg.AdminAuth,
				Cookies: cfg.Cookies,
			}))

			r.Get("/users", adminHandler.ListUsers)
			r.Get("/export", adminHandler.Export)
			r.Post("/user/{id}/revoke", adminHandler.RevokeKey)
			r.Post("/user/{id}/delete", adminHandler.DeleteUser)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
