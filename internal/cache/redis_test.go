// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("FOLIO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: FOLIO_TEST_REDIS_URL not set")
	}
	client, err := NewRedisClient(context.Background(), DefaultRedisOptions(url))
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCache_Basic(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()
	c := NewRedisCache(client, "test:"+uuid.NewString()+":", time.Minute)
	defer func() { _ = c.Clear(ctx) }()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Get after Delete: %v, want ErrCacheMiss", err)
	}
}

func TestRedisTaggedCache_Invalidate(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"
	tc := New(Config{Redis: client, Prefix: prefix, TTL: time.Minute})

	if err := tc.SetTagged(ctx, "page:/blog?", []byte("list"), "posts", PathTag("/blog")); err != nil {
		t.Fatalf("SetTagged: %v", err)
	}
	if err := tc.InvalidatePath(ctx, "/blog"); err != nil {
		t.Fatalf("InvalidatePath: %v", err)
	}
	if _, err := tc.Get(ctx, "page:/blog?"); err != ErrCacheMiss {
		t.Errorf("Get after invalidation: %v, want ErrCacheMiss", err)
	}
	// the other tag set still references the dropped key; taking it is harmless
	if err := tc.InvalidateTag(ctx, "posts"); err != nil {
		t.Errorf("InvalidateTag: %v", err)
	}
}

func TestNewRedisClient_EmptyURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), RedisOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), DefaultRedisOptions("not-a-url")); err == nil {
		t.Error("expected error for invalid URL")
	}
}
