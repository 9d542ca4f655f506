// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Rate limiter backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"FOLIO_DB_PATH" envDefault:"./data/folio.db"`
	SessionSecret string `env:"FOLIO_SESSION_SECRET,required"`
	ServerHost    string `env:"FOLIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"FOLIO_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"FOLIO_ENV" envDefault:"development"`
	LogLevel      string `env:"FOLIO_LOG_LEVEL" envDefault:"info"`
	SiteURL       string `env:"FOLIO_SITE_URL" envDefault:"http://localhost:8080"`
	SiteTitle     string `env:"FOLIO_SITE_TITLE" envDefault:"Folio"`

	ReadTimeout  time.Duration `env:"FOLIO_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"FOLIO_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"FOLIO_IDLE_TIMEOUT" envDefault:"60s"`

	// Optional YAML file replacing the built-in section table
	SectionsFile string `env:"FOLIO_SECTIONS_FILE"`

	// Shared secret for the CMS revalidation webhook
	RevalidateSecret string `env:"FOLIO_REVALIDATE_SECRET"`

	// Cache configuration
	RedisURL     string        `env:"FOLIO_REDIS_URL"`
	CachePrefix  string        `env:"FOLIO_CACHE_PREFIX" envDefault:"folio:"`
	CacheTTL     time.Duration `env:"FOLIO_CACHE_TTL" envDefault:"1h"`
	CacheMaxSize int           `env:"FOLIO_CACHE_MAX_SIZE" envDefault:"10000"`

	// Subscriber rate limiter
	RateLimitBackend string        `env:"FOLIO_RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitWindow  time.Duration `env:"FOLIO_RATE_LIMIT_WINDOW" envDefault:"1h"`
	RateLimitMax     int           `env:"FOLIO_RATE_LIMIT_MAX" envDefault:"20"`

	// Transactional email provider; empty APIKey logs mail instead of sending
	MailAPIURL string `env:"FOLIO_MAIL_API_URL" envDefault:"https://api.resend.com/emails"`
	MailAPIKey string `env:"FOLIO_MAIL_API_KEY"`
	MailFrom   string `env:"FOLIO_MAIL_FROM" envDefault:"Folio <newsletter@localhost>"`

	// Tracing
	OTelEnabled  bool    `env:"FOLIO_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string  `env:"FOLIO_OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelInsecure bool    `env:"FOLIO_OTEL_INSECURE" envDefault:"true"`
	OTelSample   float64 `env:"FOLIO_OTEL_SAMPLE" envDefault:"1.0"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedis returns true if a Redis URL is configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// UseRedisRateLimit reports whether subscriber attempts are counted in Redis.
func (c Config) UseRedisRateLimit() bool {
	return c.RateLimitBackend == RateLimitRedis && c.UseRedis()
}

// MailEnabled returns true if the email provider is configured.
func (c Config) MailEnabled() bool {
	return c.MailAPIKey != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("FOLIO_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	if cfg.RateLimitBackend == RateLimitRedis && !cfg.UseRedis() {
		slog.Warn("FOLIO_RATE_LIMIT_BACKEND=redis without FOLIO_REDIS_URL, using memory")
	}

	return cfg, nil
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("FOLIO_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("FOLIO_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}
	if !c.IsDevelopment() && c.RevalidateSecret == "" {
		return errors.New("FOLIO_REVALIDATE_SECRET is required outside development")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("FOLIO_RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("FOLIO_RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}
	switch c.RateLimitBackend {
	case RateLimitMemory, RateLimitRedis:
	default:
		return fmt.Errorf("FOLIO_RATE_LIMIT_BACKEND must be %q or %q, got %q",
			RateLimitMemory, RateLimitRedis, c.RateLimitBackend)
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
