// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/olegiv/folio/internal/store"
)

// SearchParams holds the public search query parameters.
type SearchParams struct {
	Query string
	Tag   string
	Page  int
}

// ParsePage parses a 1-based page number. Anything invalid becomes 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Search returns published posts whose title, excerpt or content contains
// the query (case-insensitive), optionally restricted to a tag.
func (s *ContentService) Search(ctx context.Context, p SearchParams) (Page, error) {
	return s.search(ctx, p.Query, strings.TrimSpace(p.Tag), p.Page)
}

func (s *ContentService) search(ctx context.Context, query, tag string, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	pattern := store.LikePattern(query)

	rows, err := s.queries.SearchPublishedPosts(ctx, store.SearchPublishedPostsParams{
		Pattern: pattern,
		TagSlug: tag,
		Limit:   PageSize,
		Offset:  offset(page),
	})
	if err != nil {
		return Page{}, fmt.Errorf("searching posts: %w", err)
	}
	total, err := s.queries.CountSearchPublishedPosts(ctx, store.CountSearchPublishedPostsParams{
		Pattern: pattern,
		TagSlug: tag,
	})
	if err != nil {
		return Page{}, fmt.Errorf("counting posts: %w", err)
	}

	posts, err := s.toPosts(ctx, rows)
	if err != nil {
		return Page{}, err
	}
	return newPage(posts, total, page), nil
}
