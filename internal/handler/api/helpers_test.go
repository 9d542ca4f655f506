// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio/internal/mail"
	"github.com/olegiv/folio/internal/newsletter"
	"github.com/olegiv/folio/internal/ratelimit"
	"github.com/olegiv/folio/internal/scheduler"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/service"
	"github.com/olegiv/folio/internal/testutil"
)

type testEnv struct {
	db      *sql.DB
	content *service.ContentService
	nl      *newsletter.Service
	jobs    *scheduler.Scheduler
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	logger := testutil.TestLogger()

	env := &testEnv{
		db:      db,
		content: service.NewContentService(db, section.Default(), nil, logger),
		nl: newsletter.NewService(db,
			ratelimit.NewMemory(ratelimit.DefaultMax, ratelimit.DefaultWindow),
			mail.NewLogSender(testutil.DiscardLogger()),
			newsletter.Options{SiteURL: "https://example.com", SiteTitle: "Folio", Logger: logger},
		),
		jobs: scheduler.New(logger, nil),
	}

	h := NewHandler(env.content, env.nl, env.jobs)
	r := chi.NewRouter()
	r.Get("/content/{section}", h.ListContent)
	r.Post("/content/{section}", h.CreateContent)
	r.Put("/content/{section}/{id}", h.UpdateContent)
	r.Delete("/content/{section}/{id}", h.DeleteContent)
	r.Post("/newsletter/broadcast", h.Broadcast)
	r.Get("/subscribers", h.ListSubscribers)
	r.Get("/jobs", h.ListJobs)
	r.Post("/jobs/{name}/run", h.RunJob)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *Meta           `json:"meta"`
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return env
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
