// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// attemptScript increments the window counter and starts the window on the
// first hit. Returns {count, pttl}.
var attemptScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter is a fixed-window counter shared through Redis.
// Rejected attempts still increment the counter, but the window length is
// fixed at the first attempt, so the allow/reject outcome matches MemoryLimiter.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	max    int
	length time.Duration
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter. Keys are "<prefix>ratelimit:<id>".
func NewRedis(client redis.Scripter, prefix string, limit int, length time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultMax
	}
	if length <= 0 {
		length = DefaultWindow
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    limit,
		length: length,
		now:    time.Now,
	}
}

// Attempt implements Limiter.
func (l *RedisLimiter) Attempt(ctx context.Context, id string) (Decision, error) {
	res, err := attemptScript.Run(ctx, l.client, []string{l.prefix + "ratelimit:" + id}, l.length.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit attempt: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit attempt: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	d := Decision{
		Allowed:   count <= l.max,
		Remaining: max(l.max-count, 0),
		ResetAt:   l.now().Add(ttl),
	}
	return d, nil
}
