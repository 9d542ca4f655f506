// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names reported by Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds configuration for the response cache.
type Config struct {
	// Redis is the shared client. Nil selects the in-memory backend.
	Redis *redis.Client

	// Prefix is the Redis key prefix (e.g. "folio:")
	Prefix string

	TTL     time.Duration
	MaxSize int // memory backend only
}

// Backend returns the backend New will build.
func (c Config) Backend() string {
	if c.Redis != nil {
		return BackendRedis
	}
	return BackendMemory
}

// New builds a tagged response cache on the configured backend.
func New(cfg Config) *TaggedCache {
	if cfg.Redis != nil {
		return NewTaggedCache(
			NewRedisCache(cfg.Redis, cfg.Prefix+"cache:", cfg.TTL),
			NewRedisTagIndex(cfg.Redis, cfg.Prefix),
			cfg.TTL,
		)
	}
	return NewTaggedCache(
		NewMemoryCache(MemoryCacheOptions{DefaultTTL: cfg.TTL, MaxSize: cfg.MaxSize}),
		NewMemoryTagIndex(),
		cfg.TTL,
	)
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User == nil {
		return u.String()
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
