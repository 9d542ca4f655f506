// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/service"
)

// ContentHandler serves section listings, the portfolio and post details.
type ContentHandler struct {
	content  *service.ContentService
	sections *section.Table
}

// NewContentHandler creates a content handler.
func NewContentHandler(content *service.ContentService, sections *section.Table) *ContentHandler {
	return &ContentHandler{content: content, sections: sections}
}

// SectionInfo describes the section a listing belongs to.
type SectionInfo struct {
	Segment string `json:"segment"`
	Title   string `json:"title"`
	Tag     string `json:"tag,omitempty"`
}

// ListingResponse is the body of a section or portfolio listing.
type ListingResponse struct {
	Section SectionInfo    `json:"section"`
	Data    []service.Post `json:"data"`
	Meta    Meta           `json:"meta"`
}

func pageMeta(p service.Page) Meta {
	return Meta{Total: p.Total, Page: p.Page, PerPage: p.PerPage, Pages: p.Pages}
}

// Section handles GET /{segment}.
func (h *ContentHandler) Section(w http.ResponseWriter, r *http.Request) {
	route, err := h.sections.Resolve(chi.URLParam(r, "segment"))
	if err != nil {
		writeNotFound(w, "Section not found")
		return
	}
	if route.Kind == section.KindPortfolio {
		h.Portfolio(w, r)
		return
	}

	page := service.ParsePage(r.URL.Query().Get("page"))
	result, err := h.content.ListByTag(r.Context(), route.Tag, page)
	if err != nil {
		logAndInternalError(w, "listing section", "section", route.Segment, "error", err)
		return
	}

	entry, _ := h.sections.Lookup(route.Segment)
	cache.Tag(r, revalidate.TagPosts, revalidate.TagTag(route.Tag))
	writeJSON(w, http.StatusOK, ListingResponse{
		Section: SectionInfo{Segment: route.Segment, Title: entry.Title, Tag: route.Tag},
		Data:    result.Posts,
		Meta:    pageMeta(result),
	})
}

// Portfolio handles GET /portfolio. Portfolio posts are stored in their own
// section and are not reached through the tag table.
func (h *ContentHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	page := service.ParsePage(r.URL.Query().Get("page"))
	result, err := h.content.ListSection(r.Context(), section.Portfolio, page)
	if err != nil {
		logAndInternalError(w, "listing portfolio", "error", err)
		return
	}

	cache.Tag(r, revalidate.TagPosts)
	writeJSON(w, http.StatusOK, ListingResponse{
		Section: SectionInfo{Segment: section.Portfolio, Title: "Portfolio"},
		Data:    result.Posts,
		Meta:    pageMeta(result),
	})
}

// Detail handles GET /{segment}/{slug}.
func (h *ContentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	route, err := h.sections.Resolve(chi.URLParam(r, "segment"))
	if err != nil {
		writeNotFound(w, "Section not found")
		return
	}

	var post service.Post
	if route.Kind == section.KindPortfolio {
		post, err = h.content.GetPublishedInSection(r.Context(), section.Portfolio, slug)
	} else {
		post, err = h.content.GetPublished(r.Context(), route.Tag, slug)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeNotFound(w, "Post not found")
			return
		}
		logAndInternalError(w, "loading post", "section", route.Segment, "slug", slug, "error", err)
		return
	}

	tags := []string{revalidate.PostTag(post.Slug)}
	if route.Tag != "" {
		tags = append(tags, revalidate.TagTag(route.Tag))
	}
	cache.Tag(r, tags...)
	writeJSON(w, http.StatusOK, Response{Data: post})
}
