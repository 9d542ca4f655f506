// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/olegiv/folio/internal/newsletter"
	"github.com/olegiv/folio/internal/ratelimit"
)

// NewsletterHandler serves the public subscribe and unsubscribe endpoints.
type NewsletterHandler struct {
	svc *newsletter.Service
}

// NewNewsletterHandler creates a newsletter handler.
func NewNewsletterHandler(svc *newsletter.Service) *NewsletterHandler {
	return &NewsletterHandler{svc: svc}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type unsubscribeRequest struct {
	Token string `json:"token"`
}

// Subscribe handles POST /api/newsletter/subscribe.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeBody(w, r, &req, map[string]*string{"email": &req.Email}); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	_, err := h.svc.Subscribe(r.Context(), req.Email, ratelimit.ClientID(r))
	if err != nil {
		var limited *ratelimit.LimitedError
		switch {
		case errors.As(err, &limited):
			setRetryAfter(w, limited)
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later")
		case errors.Is(err, ratelimit.ErrRateLimited):
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later")
		case errors.Is(err, newsletter.ErrInvalidEmail):
			writeBadRequest(w, "Please provide a valid email address")
		default:
			logAndInternalError(w, "subscribe failed", "error", err)
		}
		return
	}

	writeJSONSuccess(w, nil)
}

func setRetryAfter(w http.ResponseWriter, e *ratelimit.LimitedError) {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// Unsubscribe handles GET and POST /api/newsletter/unsubscribe.
// GET is the link in every email and answers in plain text; POST answers
// in JSON.
func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	plain := r.Method == http.MethodGet

	var token string
	if plain {
		token = r.URL.Query().Get("token")
	} else {
		var req unsubscribeRequest
		if err := decodeBody(w, r, &req, map[string]*string{"token": &req.Token}); err != nil {
			writeBadRequest(w, "Invalid request body")
			return
		}
		token = req.Token
		if token == "" {
			token = r.URL.Query().Get("token")
		}
	}

	_, err := h.svc.Unsubscribe(r.Context(), token)
	if err != nil {
		var status int
		var code, msg string
		switch {
		case errors.Is(err, newsletter.ErrTokenRequired):
			status, code, msg = http.StatusBadRequest, "bad_request", "Unsubscribe token is required"
		case errors.Is(err, newsletter.ErrInvalidToken):
			status, code, msg = http.StatusNotFound, "invalid_token", "This unsubscribe link is invalid or has expired"
		default:
			slog.Error("unsubscribe failed", "error", err)
			status, code, msg = http.StatusInternalServerError, "internal_error", "Internal server error"
		}
		if plain {
			http.Error(w, msg, status)
			return
		}
		writeJSONError(w, status, code, msg)
		return
	}

	if plain {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("You have been unsubscribed. You will not receive further emails.\n"))
		return
	}
	writeJSONSuccess(w, nil)
}
