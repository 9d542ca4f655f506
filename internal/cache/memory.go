// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryCache keeps response bodies in process memory. It is the fallback when
// Redis is not configured, so entries are not shared between instances.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	bytes      int64
	defaultTTL time.Duration
	maxSize    int // entries; 0 = unlimited
	closed     bool
	now        func() time.Time

	stats Stats
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL time.Duration
	MaxSize    int
}

// NewMemoryCache creates an empty cache. Expired entries go lazily on read and
// in bulk through RemoveExpired.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		now:        time.Now,
	}
}

// Get returns a copy of the stored value.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCacheClosed
	}
	e, ok := c.entries[key]
	if ok && !e.live(c.now()) {
		c.remove(key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return nil, ErrCacheMiss
	}
	c.stats.Hits++
	return slices.Clone(e.value), nil
}

// Set stores a copy of value. When the cache is full it first drops expired
// entries, then evicts the live entry closest to expiry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.removeExpired(now)
		if len(c.entries) >= c.maxSize {
			c.evictSoonest()
		}
	}

	c.remove(key)
	stored := slices.Clone(value)
	c.entries[key] = memoryEntry{value: stored, expiresAt: now.Add(ttl)}
	c.bytes += int64(len(stored))
	c.stats.Sets++
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	for _, key := range keys {
		c.remove(key)
	}
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	clear(c.entries)
	c.bytes = 0
	return nil
}

// Close marks the cache closed. Further calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// RemoveExpired drops expired entries and returns how many were removed.
func (c *MemoryCache) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpired(c.now())
}

// Stats returns a snapshot of the counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.Items = len(c.entries)
	s.Size = c.bytes
	s.HitRate = hitRate(s.Hits, s.Misses)
	return s
}

// ResetStats zeroes hits, misses and sets.
func (c *MemoryCache) ResetStats() {
	c.mu.Lock()
	c.stats = Stats{}
	c.mu.Unlock()
}

// remove, removeExpired and evictSoonest require c.mu held for writing.

func (c *MemoryCache) remove(key string) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.bytes -= int64(len(e.value))
	return true
}

func (c *MemoryCache) removeExpired(now time.Time) int {
	removed := 0
	for key, e := range c.entries {
		if !e.live(now) && c.remove(key) {
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for key, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = key, e.expiresAt
		}
	}
	if victim != "" {
		c.remove(victim)
	}
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
