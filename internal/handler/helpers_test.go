// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/service"
	"github.com/olegiv/folio/internal/testutil"
)

const testSecret = "s3cret"

type contentEnv struct {
	db       *sql.DB
	sections *section.Table
	cache    *cache.TaggedCache
	reval    *revalidate.Service
	content  *service.ContentService
}

func newContentEnv(t *testing.T) *contentEnv {
	t.Helper()
	db := testutil.TestDB(t)
	logger := testutil.TestLogger()
	sections := section.Default()
	tc := cache.New(cache.Config{TTL: time.Minute, MaxSize: 100})
	t.Cleanup(func() { _ = tc.Close() })

	reval := revalidate.NewService(testSecret, sections, tc, logger, nil)
	return &contentEnv{
		db:       db,
		sections: sections,
		cache:    tc,
		reval:    reval,
		content:  service.NewContentService(db, sections, reval, logger),
	}
}

func (e *contentEnv) create(t *testing.T, segment string, in service.Input) service.Post {
	t.Helper()
	if in.Content == "" {
		in.Content = "<p>Body of " + in.Title + "</p>"
	}
	post, err := e.content.Create(context.Background(), segment, in)
	if err != nil {
		t.Fatalf("Create(%s, %q): %v", segment, in.Title, err)
	}
	return post
}

func published(title string, tags ...string) service.Input {
	return service.Input{Title: title, Status: service.StatusPublished, Tags: tags}
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func body(s string) io.Reader {
	if s == "" {
		return nil
	}
	return strings.NewReader(s)
}
