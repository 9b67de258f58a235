// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor
// principles, with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DevSessionSecret is the session secret used when none is configured.
// It is rejected in production.
const DevSessionSecret = "uwuntu-dev-session-secret"

// Config validation errors.
var (
	ErrUnknownDriver     = errors.New("unknown database driver")
	ErrUnknownBackend    = errors.New("unknown session backend")
	ErrRedisRequired     = errors.New("REDIS_URL is required for the redis session backend")
	ErrInsecureSecret    = errors.New("SESSION_SECRET must be set in production")
	ErrInvalidPresence   = errors.New("PRESENCE_WINDOW must be positive")
	ErrInvalidSessionTTL = errors.New("SESSION_TTL must be positive")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3000"`

	// Database: sqlite (file path) or postgres (connection URL)
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"uwuntu.db"`

	// Cache (Redis). Optional; enables login rate limiting and the redis session backend.
	RedisURL string `env:"REDIS_URL"`

	// Admin sessions
	SessionSecret   string        `env:"SESSION_SECRET" envDefault:"uwuntu-dev-session-secret"`
	SessionBackend  string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionBoltPath string        `env:"SESSION_BOLT_PATH" envDefault:"sessions.db"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// How recently a user must have been seen to be listed as online_now
	PresenceWindow time.Duration `env:"PRESENCE_WINDOW" envDefault:"720h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Login rate limiting (requires REDIS_URL)
	LoginRateLimitEnabled bool `env:"LOGIN_RATE_LIMIT_ENABLED" envDefault:"true"`
	LoginRateLimitRPM     int  `env:"LOGIN_RATE_LIMIT_RPM" envDefault:"10"`
	LoginRateLimitBurst   int  `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"5"`

	// Honor X-Forwarded-For / X-Real-IP. Enable only behind a proxy that
	// overwrites them, otherwise clients choose their own rate limit key.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://console.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks combinations that env tags cannot express.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DatabaseDriver)
	}

	switch c.SessionBackend {
	case "memory", "bolt":
	case "redis":
		if c.RedisURL == "" {
			return ErrRedisRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.SessionBackend)
	}

	if c.IsProduction() && (c.SessionSecret == "" || c.SessionSecret == DevSessionSecret) {
		return ErrInsecureSecret
	}
	if c.PresenceWindow <= 0 {
		return ErrInvalidPresence
	}
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}

	return nil
}

// Load reads an optional .env file, parses environment variables and
// validates the result. Variables already set in the environment win
// over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
