// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
)

// HeaderCache reports HIT or MISS on cacheable responses.
const HeaderCache = "X-Cache"

type tagSetKey struct{}

type tagSet struct {
	mu      sync.Mutex
	tags    []string
	noStore bool
}

// Tag attaches cache tags to the response being built for r.
// It is a no-op outside the Responses middleware.
func Tag(r *http.Request, tags ...string) {
	if ts, ok := r.Context().Value(tagSetKey{}).(*tagSet); ok {
		ts.mu.Lock()
		ts.tags = append(ts.tags, tags...)
		ts.mu.Unlock()
	}
}

// NoStore keeps the response for r out of the cache.
func NoStore(r *http.Request) {
	if ts, ok := r.Context().Value(tagSetKey{}).(*tagSet); ok {
		ts.mu.Lock()
		ts.noStore = true
		ts.mu.Unlock()
	}
}

type storedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// RequestKey is the cache key for a GET request: path plus canonical query.
func RequestKey(r *http.Request) string {
	return "page:" + r.URL.Path + "?" + r.URL.Query().Encode()
}

// Responses caches successful GET responses. Every entry is tagged with the
// tags handlers declared through Tag plus PathTag(r.URL.Path).
func Responses(tc *TaggedCache, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := RequestKey(r)
			if data, err := tc.Get(r.Context(), key); err == nil {
				var stored storedResponse
				if err := json.Unmarshal(data, &stored); err == nil {
					w.Header().Set("Content-Type", stored.ContentType)
					w.Header().Set(HeaderCache, "HIT")
					_, _ = w.Write(stored.Body)
					return
				}
			} else if err != ErrCacheMiss {
				logger.Warn("response cache read failed", "key", key, "error", err)
			}

			ts := &tagSet{}
			ctx := context.WithValue(r.Context(), tagSetKey{}, ts)
			rec := &recorder{ResponseWriter: w}
			w.Header().Set(HeaderCache, "MISS")
			next.ServeHTTP(rec, r.WithContext(ctx))

			ts.mu.Lock()
			tags := append(ts.tags, PathTag(r.URL.Path))
			skip := ts.noStore
			ts.mu.Unlock()

			if skip || rec.status != http.StatusOK {
				return
			}

			payload, err := json.Marshal(storedResponse{
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
			})
			if err != nil {
				return
			}
			if err := tc.SetTagged(r.Context(), key, payload, tags...); err != nil {
				logger.Warn("response cache write failed", "key", key, "error", err)
			}
		})
	}
}
