// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/handler"
	"github.com/olegiv/folio/internal/handler/api"
	"github.com/olegiv/folio/internal/logging"
	"github.com/olegiv/folio/internal/metrics"
	"github.com/olegiv/folio/internal/middleware"
	"github.com/olegiv/folio/internal/telemetry"
)

// requestTimeout bounds every request except broadcasts, which send one
// email per subscriber.
const (
	requestTimeout   = 30 * time.Second
	broadcastTimeout = 10 * time.Minute
)

// routerDeps is everything newRouter wires into routes.
type routerDeps struct {
	logger          *slog.Logger
	db              *sql.DB
	isDev           bool
	csrf            middleware.CSRFConfig
	sessions        *scs.SessionManager
	loginProtection *middleware.LoginProtection
	responses       *cache.TaggedCache
	metrics         *metrics.ServerMetrics

	content    *handler.ContentHandler
	search     *handler.SearchHandler
	feeds      *handler.FeedHandler
	newsletter *handler.NewsletterHandler
	revalidate *handler.RevalidateHandler
	auth       *handler.AuthHandler
	health     *handler.HealthHandler
	api        *api.Handler
}

// newRouter builds the HTTP routes. The result is wrapped for tracing.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(d.logger))
	r.Use(chimw.Recoverer)
	r.Use(d.metrics.Middleware)
	r.Use(telemetry.AnnotateRoute)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(d.isDev)))

	// Probes, scraping and robots.txt bypass the request timeout and the cache.
	r.Get("/healthz", d.health.Health)
	r.Get("/healthz/live", d.health.Liveness)
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())
	r.Get("/robots.txt", d.feeds.Robots)

	csrf := middleware.CSRF(d.csrf)
	requireAdmin := middleware.RequireAdmin(d.sessions, d.db)
	cached := cache.Responses(d.responses, d.logger)

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(d.sessions.LoadAndSave)
		r.Use(csrf)
		r.Use(requireAdmin)
		r.With(middleware.Timeout(broadcastTimeout)).Post("/newsletter/broadcast", d.api.Broadcast)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Get("/subscribers", d.api.ListSubscribers)
			r.Get("/jobs", d.api.ListJobs)
			r.Post("/jobs/{name}/run", d.api.RunJob)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/api/revalidate", d.revalidate.Revalidate)

		r.Route("/api/newsletter", func(r chi.Router) {
			r.Post("/subscribe", d.newsletter.Subscribe)
			r.Get("/unsubscribe", d.newsletter.Unsubscribe)
			r.Post("/unsubscribe", d.newsletter.Unsubscribe)
		})

		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Use(d.sessions.LoadAndSave)
			r.Use(csrf)
			r.With(d.loginProtection.Middleware()).Post("/login", d.auth.Login)
			r.Post("/logout", d.auth.Logout)
			r.With(requireAdmin).Get("/me", d.auth.Me)
		})

		r.Route("/api/v1/content/{section}", func(r chi.Router) {
			r.With(cached).Get("/", d.api.ListContent)
			r.Group(func(r chi.Router) {
				r.Use(d.sessions.LoadAndSave)
				r.Use(csrf)
				r.Use(requireAdmin)
				r.Post("/", d.api.CreateContent)
				r.Put("/{id}", d.api.UpdateContent)
				r.Delete("/{id}", d.api.DeleteContent)
			})
		})

		// Public pages, cached until a revalidation invalidates their tags.
		r.Group(func(r chi.Router) {
			r.Use(cached)
			r.Get("/api/v1/search", d.search.Search)
			r.Get("/feed.xml", d.feeds.RSS)
			r.Get("/sitemap.xml", d.feeds.Sitemap)
			r.Get("/portfolio", d.content.Portfolio)
			r.Get("/{segment}", d.content.Section)
			r.Get("/{segment}/{slug}", d.content.Detail)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	return telemetry.Handler(r)
}
