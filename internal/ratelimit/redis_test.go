// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func skipIfNoRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("FOLIO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: FOLIO_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"

	l := NewRedis(client, prefix, 3, 500*time.Millisecond)

	for i := 1; i <= 3; i++ {
		d, err := l.Attempt(ctx, "c")
		if err != nil {
			t.Fatalf("Attempt %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("attempt %d rejected", i)
		}
	}
	d, err := l.Attempt(ctx, "c")
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if d.Allowed {
		t.Fatal("4th attempt allowed, want rejected")
	}

	time.Sleep(600 * time.Millisecond)

	d, err = l.Attempt(ctx, "c")
	if err != nil {
		t.Fatalf("Attempt after window: %v", err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("after window: %+v, want allowed with 2 remaining", d)
	}
}
