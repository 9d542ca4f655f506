// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio/internal/session"
	"github.com/olegiv/folio/internal/store"
)

// ContextKeyAdmin holds the authenticated *store.Admin.
const ContextKeyAdmin ContextKey = "admin"

// RequireAdmin rejects requests without an admin session with a JSON 401.
// The admin row is loaded into the request context; a session pointing at a
// deleted admin is destroyed.
func RequireAdmin(sm *scs.SessionManager, db store.DBTX) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID := sm.GetInt64(r.Context(), session.KeyAdminID)
			if adminID == 0 {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}

			admin, err := queries.GetAdminByID(r.Context(), adminID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					_ = sm.Destroy(r.Context())
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
					return
				}
				slog.Error("loading admin", "admin_id", adminID, "error", err)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, &admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext returns the admin loaded by RequireAdmin.
func AdminFromContext(ctx context.Context) *store.Admin {
	admin, _ := ctx.Value(ContextKeyAdmin).(*store.Admin)
	return admin
}
