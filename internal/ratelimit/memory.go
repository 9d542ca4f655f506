// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// MemoryLimiter is a fixed-window counter held in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	length  time.Duration
	now     func() time.Time
}

// Option configures a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemory creates a limiter allowing limit attempts per window per id.
// Non-positive arguments fall back to DefaultMax and DefaultWindow.
func NewMemory(limit int, length time.Duration, opts ...Option) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultMax
	}
	if length <= 0 {
		length = DefaultWindow
	}
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		max:     limit,
		length:  length,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attempt implements Limiter. It never returns an error.
func (l *MemoryLimiter) Attempt(_ context.Context, id string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[id]
	if !ok || !now.Before(w.start.Add(l.length)) {
		l.windows[id] = &window{count: 1, start: now}
		return Decision{Allowed: true, Remaining: l.max - 1, ResetAt: now.Add(l.length)}, nil
	}

	resetAt := w.start.Add(l.length)
	if w.count >= l.max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	w.count++
	return Decision{Allowed: true, Remaining: l.max - w.count, ResetAt: resetAt}, nil
}

// Sweep drops windows that have elapsed and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, w := range l.windows {
		if !now.Before(w.start.Add(l.length)) {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
