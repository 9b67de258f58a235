// Package main is the entrypoint for the uwuntu key issuance API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/uwuntu/keyhub/internal/cache"
	"github.com/uwuntu/keyhub/internal/config"
	"github.com/uwuntu/keyhub/internal/handler"
	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/middleware"
	"github.com/uwuntu/keyhub/internal/repository"
	"github.com/uwuntu/keyhub/internal/server"
	"github.com/uwuntu/keyhub/internal/service"
	"github.com/uwuntu/keyhub/internal/session"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Database
	repo, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to open database",
			slog.String("driver", cfg.DatabaseDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database", slog.String("driver", repo.Driver()))

	// Redis is optional
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = repo.Close()
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	sessions, closeSessions, err := openSessionStore(cfg, cacheClient)
	if err != nil {
		logger.Error("failed to open session store",
			slog.String("backend", cfg.SessionBackend),
			slog.String("error", err.Error()),
		)
		_ = repo.Close()
		os.Exit(1)
	}
	logger.Info("session store ready", slog.String("backend", cfg.SessionBackend))

	// Services
	recorder := metrics.NewInMemory()
	accountService := service.NewAccountService(repo, logger, recorder)
	adminAuthService := service.NewAdminAuthService(repo, sessions, logger, recorder)
	adminService := service.NewAdminService(repo, cfg.PresenceWindow, logger, recorder)

	routerCfg := handler.RouterConfig{
		Logger:             logger,
		Account:            accountService,
		AdminAuth:          adminAuthService,
		Admin:              adminService,
		Cookies:            session.NewCookieCodec(cfg.SessionSecret, cfg.IsProduction()),
		DB:                 repo,
		Metrics:            recorder,
		LoginRateLimited:   cfg.LoginRateLimitEnabled,
		LoginRPM:           cfg.LoginRateLimitRPM,
		LoginBurst:         cfg.LoginRateLimitBurst,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}
	// Interfaces stay nil without Redis so the probes and limiter skip it.
	if cacheClient != nil {
		routerCfg.Cache = cacheClient
		routerCfg.LoginLimiter = middleware.LoginLimiter(cacheClient)
	}

	srv := server.New(
		handler.NewRouter(routerCfg),
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	srv.OnShutdown("database", server.Closer(repo.Close))
	if cacheClient != nil {
		srv.OnShutdown("redis", server.Closer(cacheClient.Close))
	}
	if closeSessions != nil {
		srv.OnShutdown("sessions", server.Closer(closeSessions))
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openSessionStore builds the configured session backend. The returned
// close function is nil when the backend holds no resources of its own.
func openSessionStore(cfg *config.Config, cacheClient *cache.Cache) (session.Store, func() error, error) {
	switch cfg.SessionBackend {
	case session.BackendRedis:
		return session.NewRedisStore(cacheClient.Client(), cfg.SessionTTL), nil, nil
	case session.BackendBolt:
		store, err := session.OpenBoltStore(cfg.SessionBoltPath, cfg.SessionTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return session.NewMemoryStore(cfg.SessionTTL), nil, nil
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL strips the password from a connection URL. SQLite file paths
// pass through unchanged.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if parsed.User == nil {
		return raw
	}

	if username := parsed.User.Username(); username != "" {
		parsed.User = url.User(username)
	} else {
		parsed.User = url.User("redacted")
	}

	return parsed.String()
}

// sanitizeError removes secrets from an error message before logging.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
