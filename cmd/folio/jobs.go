// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/middleware"
	"github.com/olegiv/folio/internal/ratelimit"
	"github.com/olegiv/folio/internal/scheduler"
)

// maintenanceJobs returns the periodic jobs. limiter is nil when attempts are
// counted in Redis, which expires its own windows.
func maintenanceJobs(logger *slog.Logger, db *sql.DB, responses *cache.TaggedCache,
	limiter *ratelimit.MemoryLimiter, lp *middleware.LoginProtection) []scheduler.Job {
	return []scheduler.Job{
		{
			Name:        "ratelimit-sweep",
			Description: "Drop expired subscriber windows and login lockouts",
			Schedule:    "@every 10m",
			Run: func(context.Context) error {
				windows := 0
				if limiter != nil {
					windows = limiter.Sweep()
				}
				logins := lp.Sweep()
				logger.Debug("rate limit state swept", "windows", windows, "logins", logins)
				return nil
			},
		},
		{
			Name:        "cache-sweep",
			Description: "Prune expired response cache entries",
			Schedule:    "@every 5m",
			Run: func(context.Context) error {
				if n := responses.RemoveExpired(); n > 0 {
					logger.Debug("response cache swept", "removed", n)
				}
				return nil
			},
		},
		{
			Name:        "sqlite-optimize",
			Description: "Refresh SQLite query planner statistics",
			Schedule:    "@daily",
			Run: func(ctx context.Context) error {
				if _, err := db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
					return fmt.Errorf("pragma optimize: %w", err)
				}
				return nil
			},
		},
	}
}
