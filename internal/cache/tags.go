// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PathTag is the internal tag every cached response carries for its URL path,
// so that all query-string variants of a path are dropped together.
func PathTag(path string) string {
	return "path:" + path
}

// TagIndex records which cache keys carry which tags.
type TagIndex interface {
	// Add associates key with tags for at most ttl.
	Add(ctx context.Context, key string, ttl time.Duration, tags ...string) error
	// Take returns the keys tagged with tag and forgets the tag.
	Take(ctx context.Context, tag string) ([]string, error)
}

// TaggedCache stores values under keys and invalidates them by tag or path.
type TaggedCache struct {
	cache Cache
	index TagIndex
	ttl   time.Duration
}

// NewTaggedCache combines a cache with a tag index.
func NewTaggedCache(c Cache, index TagIndex, ttl time.Duration) *TaggedCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TaggedCache{cache: c, index: index, ttl: ttl}
}

// Get returns the cached value or ErrCacheMiss.
func (t *TaggedCache) Get(ctx context.Context, key string) ([]byte, error) {
	return t.cache.Get(ctx, key)
}

// SetTagged stores value under key and indexes it under every tag.
func (t *TaggedCache) SetTagged(ctx context.Context, key string, value []byte, tags ...string) error {
	if err := t.index.Add(ctx, key, t.ttl, tags...); err != nil {
		return fmt.Errorf("indexing %s: %w", key, err)
	}
	return t.cache.Set(ctx, key, value, t.ttl)
}

// InvalidateTag drops every key carrying tag.
func (t *TaggedCache) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := t.index.Take(ctx, tag)
	if err != nil {
		return fmt.Errorf("invalidating tag %q: %w", tag, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidating tag %q: %w", tag, err)
	}
	return nil
}

// InvalidatePath drops every cached variant of path.
func (t *TaggedCache) InvalidatePath(ctx context.Context, path string) error {
	return t.InvalidateTag(ctx, PathTag(path))
}

// RemoveExpired prunes expired entries from in-memory backends.
// Redis expires keys on its own, so it is a no-op there.
func (t *TaggedCache) RemoveExpired() int {
	removed := 0
	if mc, ok := t.cache.(*MemoryCache); ok {
		removed += mc.RemoveExpired()
	}
	if mi, ok := t.index.(*MemoryTagIndex); ok {
		mi.RemoveExpired()
	}
	return removed
}

// Stats returns backend statistics when available.
func (t *TaggedCache) Stats() Stats {
	if sp, ok := t.cache.(StatsProvider); ok {
		return sp.Stats()
	}
	return Stats{}
}

// Close closes the underlying cache.
func (t *TaggedCache) Close() error {
	return t.cache.Close()
}

var _ Invalidator = (*TaggedCache)(nil)

// MemoryTagIndex is a TagIndex held in process memory.
type MemoryTagIndex struct {
	mu   sync.Mutex
	tags map[string]map[string]time.Time // tag -> key -> expiry
	now  func() time.Time
}

// NewMemoryTagIndex creates an empty index.
func NewMemoryTagIndex() *MemoryTagIndex {
	return &MemoryTagIndex{
		tags: make(map[string]map[string]time.Time),
		now:  time.Now,
	}
}

// Add implements TagIndex.
func (m *MemoryTagIndex) Add(_ context.Context, key string, ttl time.Duration, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires := m.now().Add(ttl)
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]time.Time)
			m.tags[tag] = keys
		}
		keys[key] = expires
	}
	return nil
}

// Take implements TagIndex.
func (m *MemoryTagIndex) Take(_ context.Context, tag string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.tags[tag]
	delete(m.tags, tag)
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out, nil
}

// RemoveExpired forgets keys whose cache entries have expired.
func (m *MemoryTagIndex) RemoveExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for tag, keys := range m.tags {
		for k, exp := range keys {
			if !now.Before(exp) {
				delete(keys, k)
			}
		}
		if len(keys) == 0 {
			delete(m.tags, tag)
		}
	}
}

// RedisTagIndex keeps one Redis set per tag: "<prefix>tag:<tag>".
type RedisTagIndex struct {
	client redis.Cmdable
	prefix string
}

// NewRedisTagIndex creates a Redis-backed index.
func NewRedisTagIndex(client redis.Cmdable, prefix string) *RedisTagIndex {
	return &RedisTagIndex{client: client, prefix: prefix}
}

func (r *RedisTagIndex) setKey(tag string) string {
	return r.prefix + "tag:" + tag
}

// Add implements TagIndex. Each tag set lives as long as its newest member.
func (r *RedisTagIndex) Add(ctx context.Context, key string, ttl time.Duration, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tag := range tags {
			pipe.SAdd(ctx, r.setKey(tag), key)
			pipe.Expire(ctx, r.setKey(tag), ttl)
		}
		return nil
	})
	return err
}

// Take implements TagIndex.
func (r *RedisTagIndex) Take(ctx context.Context, tag string) ([]string, error) {
	var members *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members = pipe.SMembers(ctx, r.setKey(tag))
		pipe.Del(ctx, r.setKey(tag))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return members.Val(), nil
}

var (
	_ TagIndex = (*MemoryTagIndex)(nil)
	_ TagIndex = (*RedisTagIndex)(nil)
)
