// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/folio/internal/render"
	"github.com/olegiv/folio/internal/service"
)

const subscribersPerPage = 50

// BroadcastRequest is the body of a newsletter send.
type BroadcastRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Format  string `json:"format"` // html (default) or markdown
}

// Broadcast handles POST /api/v1/admin/newsletter/broadcast.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	fieldErrors := make(map[string]string)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		fieldErrors["subject"] = "Subject is required"
	}
	if strings.TrimSpace(req.Body) == "" {
		fieldErrors["body"] = "Body is required"
	}
	if req.Format == "" {
		req.Format = render.FormatHTML
	}
	if !render.ValidFormat(req.Format) {
		fieldErrors["format"] = "Format must be 'html' or 'markdown'"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	body, err := render.HTML(req.Format, req.Body)
	if err != nil {
		slog.Error("rendering newsletter body", "error", err)
		WriteInternalError(w)
		return
	}

	result, err := h.newsletter.Broadcast(r.Context(), req.Subject, body)
	if err != nil {
		slog.Error("newsletter broadcast failed", "sent", result.Sent, "failed", result.Failed, "error", err)
		WriteInternalError(w)
		return
	}
	WriteSuccess(w, result, nil)
}

// SubscriberResponse is the admin view of a subscriber.
type SubscriberResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	IsSubscribed bool      `json:"is_subscribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListSubscribers handles GET /api/v1/admin/subscribers?page=.
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	page := service.ParsePage(r.URL.Query().Get("page"))
	offset := int64((page - 1) * subscribersPerPage)

	subs, total, err := h.newsletter.Page(r.Context(), subscribersPerPage, offset)
	if err != nil {
		slog.Error("listing subscribers", "error", err)
		WriteInternalError(w)
		return
	}

	data := make([]SubscriberResponse, 0, len(subs))
	for _, s := range subs {
		data = append(data, SubscriberResponse{
			ID:           s.ID,
			Email:        s.Email,
			IsSubscribed: s.IsSubscribed,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	WriteSuccess(w, data, newMeta(total, page, subscribersPerPage))
}
