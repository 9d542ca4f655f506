// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/service"
)

// ListContent handles GET /api/v1/content/{section}. Public; published only.
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "section")
	page := service.ParsePage(r.URL.Query().Get("page"))

	result, err := h.content.ListSection(r.Context(), segment, page)
	if err != nil {
		h.writeContentError(w, err, "listing content", segment)
		return
	}

	cache.Tag(r, revalidate.TagPosts)
	WriteSuccess(w, result.Posts, &Meta{
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
		Pages:   result.Pages,
	})
}

// CreateContent handles POST /api/v1/content/{section}.
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "section")

	var in service.Input
	if err := decodeJSON(w, r, &in); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	post, err := h.content.Create(r.Context(), segment, in)
	if err != nil {
		h.writeContentError(w, err, "creating content", segment)
		return
	}
	WriteCreated(w, post)
}

// UpdateContent handles PUT /api/v1/content/{section}/{id}.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "section")
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	var in service.Input
	if err := decodeJSON(w, r, &in); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	post, err := h.content.Update(r.Context(), segment, id, in)
	if err != nil {
		h.writeContentError(w, err, "updating content", segment)
		return
	}
	WriteSuccess(w, post, nil)
}

// DeleteContent handles DELETE /api/v1/content/{section}/{id}.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "section")
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	if err := h.content.Delete(r.Context(), segment, id); err != nil {
		h.writeContentError(w, err, "deleting content", segment)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeContentError(w http.ResponseWriter, err error, action, segment string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, map[string]string{verr.Field: verr.Message})
	case errors.Is(err, section.ErrUnknownSection):
		WriteNotFound(w, "Section not found")
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, "Post not found")
	default:
		slog.Error(action, "section", segment, "error", err)
		WriteInternalError(w)
	}
}
