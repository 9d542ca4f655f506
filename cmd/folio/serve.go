// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/config"
	"github.com/olegiv/folio/internal/handler"
	"github.com/olegiv/folio/internal/handler/api"
	"github.com/olegiv/folio/internal/mail"
	"github.com/olegiv/folio/internal/metrics"
	"github.com/olegiv/folio/internal/middleware"
	"github.com/olegiv/folio/internal/newsletter"
	"github.com/olegiv/folio/internal/ratelimit"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/scheduler"
	"github.com/olegiv/folio/internal/service"
	"github.com/olegiv/folio/internal/session"
	"github.com/olegiv/folio/internal/store"
	"github.com/olegiv/folio/internal/telemetry"
	"github.com/olegiv/folio/internal/version"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, app)
		},
	}
}

func runServe(ctx context.Context, app *appContext) error {
	cfg, err := app.config()
	if err != nil {
		return err
	}
	logger := app.logger
	info := version.Get()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:  cfg.OTelEnabled,
		Endpoint: cfg.OTelEndpoint,
		Insecure: cfg.OTelInsecure,
		Sample:   cfg.OTelSample,
		Version:  info.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	db, err := app.database(true)
	if err != nil {
		return err
	}
	if v, err := store.MigrationVersion(db); err == nil {
		logger.Info("database ready", "path", cfg.DBPath, "schema_version", v)
	}

	sections, err := app.sections()
	if err != nil {
		return err
	}

	m := metrics.New()
	m.SetBuildInfo(info)

	rdb := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	responses := cache.New(cache.Config{
		Redis:   rdb,
		Prefix:  cfg.CachePrefix,
		TTL:     cfg.CacheTTL,
		MaxSize: cfg.CacheMaxSize,
	})
	defer func() { _ = responses.Close() }()
	logger.Info("response cache initialized", "backend", cache.Config{Redis: rdb}.Backend(), "ttl", cfg.CacheTTL)

	var limiter ratelimit.Limiter
	var memLimiter *ratelimit.MemoryLimiter
	if cfg.UseRedisRateLimit() && rdb != nil {
		limiter = ratelimit.NewRedis(rdb, cfg.CachePrefix+"ratelimit:", cfg.RateLimitMax, cfg.RateLimitWindow)
		logger.Info("subscriber rate limiter initialized", "backend", "redis")
	} else {
		memLimiter = ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
		limiter = memLimiter
		logger.Info("subscriber rate limiter initialized", "backend", "memory")
	}

	sender := newSender(cfg, logger)

	reval := revalidate.NewService(cfg.RevalidateSecret, sections, responses, logger, m)
	if cfg.RevalidateSecret == "" {
		logger.Warn("FOLIO_REVALIDATE_SECRET is empty; all revalidation webhooks will be rejected")
	}
	content := service.NewContentService(db, sections, reval, logger)
	subscribers := newsletter.NewService(db, limiter, sender, newsletter.Options{
		SiteURL:   cfg.SiteURL,
		SiteTitle: cfg.SiteTitle,
		Logger:    logger,
		Metrics:   m,
	})

	sessions := session.New(db, cfg.IsDevelopment())
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	sched := scheduler.New(logger, m)
	for _, job := range maintenanceJobs(logger, db, responses, memLimiter, loginProtection) {
		if err := sched.Add(job); err != nil {
			return err
		}
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	checks := map[string]handler.Pinger{"database": db}
	if rdb != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	router := newRouter(routerDeps{
		logger:          logger,
		db:              db,
		isDev:           cfg.IsDevelopment(),
		csrf:            middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.SiteURL, cfg.IsDevelopment()),
		sessions:        sessions,
		loginProtection: loginProtection,
		responses:       responses,
		metrics:         m,
		content:         handler.NewContentHandler(content, sections),
		search:          handler.NewSearchHandler(content),
		feeds:           handler.NewFeedHandler(content, sections, cfg.SiteURL, cfg.SiteTitle),
		newsletter:      handler.NewNewsletterHandler(subscribers),
		revalidate:      handler.NewRevalidateHandler(reval),
		auth:            handler.NewAuthHandler(db, sessions, loginProtection),
		health:          handler.NewHealthHandler(info.Version, checks),
		api:             api.NewHandler(content, subscribers, sched),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}
	if srv.WriteTimeout < broadcastTimeout {
		// broadcasts hold the connection until every email is sent
		srv.WriteTimeout = broadcastTimeout + 10*time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// caller falls back to in-memory backends.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.UseRedis() {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, cache.DefaultRedisOptions(cfg.RedisURL))
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache and rate limiter",
			"url", cache.SanitizeRedisURL(cfg.RedisURL), "error", err)
		return nil
	}
	logger.Info("connected to redis", "url", cache.SanitizeRedisURL(cfg.RedisURL))
	return client
}

func newSender(cfg *config.Config, logger *slog.Logger) mail.Sender {
	if !cfg.MailEnabled() {
		logger.Warn("FOLIO_MAIL_API_KEY not set; emails are logged instead of sent")
		return mail.NewLogSender(logger)
	}
	return mail.NewHTTPSender(&http.Client{Timeout: 15 * time.Second}, cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)
}
