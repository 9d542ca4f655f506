// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for admin authentication,
// login protection, CSRF, security headers and request timeouts.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ContextKey namespaces request context values set by this package.
type ContextKey string

// APIError is the JSON error envelope shared by every endpoint.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// ipBuckets holds one token bucket per client address. Buckets idle longer
// than the prune horizon are dropped by prune.
type ipBuckets struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	buckets map[string]*ipBucket
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPBuckets(rps float64, burst int) *ipBuckets {
	return &ipBuckets{
		rate:    rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*ipBucket),
	}
}

// allow takes one token from ip's bucket at now.
func (b *ipBuckets) allow(ip string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	bucket, ok := b.buckets[ip]
	if !ok {
		bucket = &ipBucket{limiter: rate.NewLimiter(b.rate, b.burst)}
		b.buckets[ip] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

// prune removes buckets not used since cutoff and returns how many went.
func (b *ipBuckets) prune(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for ip, bucket := range b.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(b.buckets, ip)
			removed++
		}
	}
	return removed
}

func (b *ipBuckets) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

// clientIP returns the address chi's RealIP middleware put into RemoteAddr,
// without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
