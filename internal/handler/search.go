// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/service"
)

// SearchHandler serves the public search endpoint.
type SearchHandler struct {
	content *service.ContentService
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(content *service.ContentService) *SearchHandler {
	return &SearchHandler{content: content}
}

// Search handles GET /api/v1/search?q=&tag=&page=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.content.Search(r.Context(), service.SearchParams{
		Query: q.Get("q"),
		Tag:   q.Get("tag"),
		Page:  service.ParsePage(q.Get("page")),
	})
	if err != nil {
		logAndInternalError(w, "search failed", "error", err)
		return
	}

	cache.Tag(r, revalidate.TagPosts, revalidate.TagTags)
	meta := pageMeta(result)
	writeJSON(w, http.StatusOK, Response{Data: result.Posts, Meta: &meta})
}
