// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ratelimit counts subscribe attempts per client in fixed windows.
//
// Limiter is the capability the newsletter flow depends on. MemoryLimiter keeps
// counters in process memory and is not shared between instances; RedisLimiter
// keeps them in Redis for multi-instance deployments.
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Defaults for subscriber throttling.
const (
	DefaultWindow = time.Hour
	DefaultMax    = 20
)

// UnknownClient identifies requests without an X-Forwarded-For header.
const UnknownClient = "unknown"

// ErrRateLimited is returned by callers that reject an attempt.
var ErrRateLimited = errors.New("too many requests")

// LimitedError is a rejection that knows when the window resets.
// It matches ErrRateLimited under errors.Is.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return ErrRateLimited.Error()
}

func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the client should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetAt.IsZero() {
		return 0
	}
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Limiter records an attempt for id and reports whether it is allowed.
type Limiter interface {
	Attempt(ctx context.Context, id string) (Decision, error)
}

// ClientID returns the first X-Forwarded-For entry, or UnknownClient when the
// header is missing or its first entry is blank.
func ClientID(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return UnknownClient
	}
	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return UnknownClient
	}
	return first
}
