// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio/internal/auth"
	"github.com/olegiv/folio/internal/middleware"
	"github.com/olegiv/folio/internal/session"
	"github.com/olegiv/folio/internal/store"
)

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db store.DBTX, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		sessionManager:  sm,
		loginProtection: lp,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminResponse is the public view of the signed-in admin.
type AdminResponse struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func adminResponse(a store.Admin) AdminResponse {
	resp := AdminResponse{ID: a.ID, Email: a.Email}
	if a.LastLoginAt.Valid {
		t := a.LastLoginAt.Time
		resp.LastLoginAt = &t
	}
	return resp
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req, map[string]*string{"email": &req.Email, "password": &req.Password}); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeBadRequest(w, "Email and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			slog.Warn("login attempt on locked account", "email", email)
			writeLocked(w, remaining)
			return
		}
	}

	admin, err := h.queries.GetAdminByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, "database error during login", "error", err)
		return
	}

	valid := false
	if err == nil {
		valid, err = auth.CheckPassword(req.Password, admin.PasswordHash)
		if err != nil {
			slog.Error("password check error", "admin_id", admin.ID, "error", err)
			valid = false
		}
	}

	if !valid {
		slog.Debug("failed login", "email", email)
		// counted for unknown emails too so responses do not reveal which exist
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
				writeLocked(w, lockDuration)
				return
			}
		}
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	if auth.NeedsRehash(admin.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.queries.UpdateAdminPassword(r.Context(), store.UpdateAdminPasswordParams{
				PasswordHash: newHash,
				ID:           admin.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "admin_id", admin.ID, "error", err)
			}
		}
	}

	now := time.Now().UTC()
	if err := h.queries.UpdateAdminLastLogin(r.Context(), store.UpdateAdminLastLoginParams{
		LastLoginAt: sql.NullTime{Time: now, Valid: true},
		ID:          admin.ID,
	}); err != nil {
		slog.Error("failed to update last login time", "admin_id", admin.ID, "error", err)
	}

	// new token on privilege change prevents session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), session.KeyAdminID, admin.ID)
	h.sessionManager.Put(r.Context(), session.KeyAdminEmail, admin.Email)

	slog.Info("admin logged in", "admin_id", admin.ID)
	admin.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	writeJSON(w, http.StatusOK, Response{Data: adminResponse(admin)})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	adminID := h.sessionManager.GetInt64(r.Context(), session.KeyAdminID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		logAndInternalError(w, "session destroy error", "error", err)
		return
	}

	slog.Info("admin logged out", "admin_id", adminID)
	writeJSONSuccess(w, nil)
}

// Me handles GET /api/v1/auth/me. It runs behind RequireAdmin.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromContext(r.Context())
	if admin == nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: adminResponse(*admin)})
}

func writeLocked(w http.ResponseWriter, d time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
	writeJSONError(w, http.StatusTooManyRequests, "account_locked",
		"Too many failed attempts, try again in "+formatDuration(d))
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
