// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the content and search logic behind the HTTP handlers.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/folio/internal/render"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/store"
	"github.com/olegiv/folio/internal/util"
)

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// PageSize is the number of posts per listing or search page.
const PageSize = 10

// ErrNotFound is returned when a post does not exist or is not visible.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Revalidator applies cache invalidation for content changes.
// Implemented by revalidate.Service.
type Revalidator interface {
	Apply(ctx context.Context, ev revalidate.Event) (revalidate.Result, error)
}

// Post is the API view of a stored post.
type Post struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Section     string         `json:"section"`
	Excerpt     string         `json:"excerpt"`
	Content     string         `json:"content"`
	HTML        string         `json:"html"`
	Format      string         `json:"format"`
	Status      string         `json:"status"`
	Tags        []string       `json:"tags"`
	Meta        map[string]any `json:"meta"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Page is one page of posts.
type Page struct {
	Posts   []Post `json:"posts"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Pages   int    `json:"pages"`
}

func newPage(posts []Post, total int64, page int) Page {
	pages := int((total + PageSize - 1) / PageSize)
	if posts == nil {
		posts = []Post{}
	}
	return Page{Posts: posts, Total: total, Page: page, PerPage: PageSize, Pages: pages}
}

func offset(page int) int64 {
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * PageSize)
}

// Input is the writable part of a post.
type Input struct {
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Excerpt     string         `json:"excerpt"`
	Content     string         `json:"content"`
	Format      string         `json:"format"`
	Status      string         `json:"status"`
	Tags        []string       `json:"tags"`
	Meta        map[string]any `json:"meta"`
	PublishedAt *time.Time     `json:"published_at"`
}

// ContentService reads and writes posts. Writes are followed by cache
// revalidation of the post and its sections.
type ContentService struct {
	db       *sql.DB
	queries  *store.Queries
	sections *section.Table
	reval    Revalidator
	logger   *slog.Logger
	now      func() time.Time
}

// NewContentService creates a content service. reval may be nil.
func NewContentService(db *sql.DB, sections *section.Table, reval Revalidator, logger *slog.Logger) *ContentService {
	return &ContentService{
		db:       db,
		queries:  store.New(db),
		sections: sections,
		reval:    reval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ManagedSection reports whether segment can hold posts: any table segment
// or the portfolio.
func (s *ContentService) ManagedSection(segment string) bool {
	if segment == section.Portfolio {
		return true
	}
	_, ok := s.sections.Lookup(segment)
	return ok
}

// ListByTag returns published posts carrying tag, newest first.
func (s *ContentService) ListByTag(ctx context.Context, tag string, page int) (Page, error) {
	return s.search(ctx, "", tag, page)
}

// ListSection returns published posts stored in a section. Used for the
// portfolio and the public CRUD list.
func (s *ContentService) ListSection(ctx context.Context, segment string, page int) (Page, error) {
	if !s.ManagedSection(segment) {
		return Page{}, section.ErrUnknownSection
	}
	if page < 1 {
		page = 1
	}
	rows, err := s.queries.ListPostsBySection(ctx, store.ListPostsBySectionParams{
		Section: segment,
		Status:  StatusPublished,
		Limit:   PageSize,
		Offset:  offset(page),
	})
	if err != nil {
		return Page{}, fmt.Errorf("listing %s: %w", segment, err)
	}
	total, err := s.queries.CountPostsBySection(ctx, store.CountPostsBySectionParams{
		Section: segment,
		Status:  StatusPublished,
	})
	if err != nil {
		return Page{}, fmt.Errorf("counting %s: %w", segment, err)
	}
	posts, err := s.toPosts(ctx, rows)
	if err != nil {
		return Page{}, err
	}
	return newPage(posts, total, page), nil
}

// GetPublished returns the published post with slug carrying tag.
func (s *ContentService) GetPublished(ctx context.Context, tag, slug string) (Post, error) {
	row, err := s.queries.GetPublishedPostByTagAndSlug(ctx, store.GetPublishedPostByTagAndSlugParams{
		TagSlug: tag,
		Slug:    slug,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("getting post: %w", err)
	}
	return s.toPost(ctx, row)
}

// GetPublishedInSection returns a published post by section and slug.
func (s *ContentService) GetPublishedInSection(ctx context.Context, segment, slug string) (Post, error) {
	row, err := s.queries.GetPostBySectionAndSlug(ctx, store.GetPostBySectionAndSlugParams{
		Section: segment,
		Slug:    slug,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("getting post: %w", err)
	}
	if row.Status != StatusPublished {
		return Post{}, ErrNotFound
	}
	return s.toPost(ctx, row)
}

// Recent returns the newest n published posts.
func (s *ContentService) Recent(ctx context.Context, n int) ([]Post, error) {
	rows, err := s.queries.SearchPublishedPosts(ctx, store.SearchPublishedPostsParams{
		Limit: int64(n),
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent posts: %w", err)
	}
	return s.toPosts(ctx, rows)
}

// Create validates in and stores a new post in segment.
func (s *ContentService) Create(ctx context.Context, segment string, in Input) (Post, error) {
	if !s.ManagedSection(segment) {
		return Post{}, section.ErrUnknownSection
	}
	in, err := s.normalize(in)
	if err != nil {
		return Post{}, err
	}

	var row store.Post
	err = s.inTx(ctx, func(q *store.Queries) error {
		if err := s.ensureSlugFree(ctx, q, segment, in.Slug, 0); err != nil {
			return err
		}
		now := s.now()
		row, err = q.CreatePost(ctx, store.CreatePostParams{
			Title:       in.Title,
			Slug:        in.Slug,
			Excerpt:     in.Excerpt,
			Content:     in.Content,
			Format:      in.Format,
			Section:     segment,
			Status:      in.Status,
			Meta:        encodeMeta(in.Meta),
			PublishedAt: publishedAt(in, sql.NullTime{}, now),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("creating post: %w", err)
		}
		return s.setTags(ctx, q, row.ID, segment, in.Tags)
	})
	if err != nil {
		return Post{}, err
	}

	post, err := s.toPost(ctx, row)
	if err != nil {
		return Post{}, err
	}
	s.logger.Info("post created", "id", post.ID, "section", segment, "slug", post.Slug)
	s.revalidate(ctx, post, "")
	return post, nil
}

// Update replaces the writable fields of post id in segment.
func (s *ContentService) Update(ctx context.Context, segment string, id int64, in Input) (Post, error) {
	if !s.ManagedSection(segment) {
		return Post{}, section.ErrUnknownSection
	}
	in, err := s.normalize(in)
	if err != nil {
		return Post{}, err
	}

	var before store.Post
	var row store.Post
	err = s.inTx(ctx, func(q *store.Queries) error {
		before, err = s.getInSection(ctx, q, segment, id)
		if err != nil {
			return err
		}
		if err := s.ensureSlugFree(ctx, q, segment, in.Slug, id); err != nil {
			return err
		}
		row, err = q.UpdatePost(ctx, store.UpdatePostParams{
			Title:       in.Title,
			Slug:        in.Slug,
			Excerpt:     in.Excerpt,
			Content:     in.Content,
			Format:      in.Format,
			Status:      in.Status,
			Meta:        encodeMeta(in.Meta),
			PublishedAt: publishedAt(in, before.PublishedAt, s.now()),
			UpdatedAt:   s.now(),
			ID:          id,
		})
		if err != nil {
			return fmt.Errorf("updating post: %w", err)
		}
		if err := q.ClearPostTags(ctx, id); err != nil {
			return fmt.Errorf("clearing tags: %w", err)
		}
		return s.setTags(ctx, q, id, segment, in.Tags)
	})
	if err != nil {
		return Post{}, err
	}

	post, err := s.toPost(ctx, row)
	if err != nil {
		return Post{}, err
	}
	s.logger.Info("post updated", "id", id, "section", segment, "slug", post.Slug)

	oldSlug := ""
	if before.Slug != post.Slug {
		oldSlug = before.Slug
	}
	s.revalidate(ctx, post, oldSlug)
	return post, nil
}

// Delete removes post id from segment.
func (s *ContentService) Delete(ctx context.Context, segment string, id int64) error {
	if !s.ManagedSection(segment) {
		return section.ErrUnknownSection
	}

	var post Post
	err := s.inTx(ctx, func(q *store.Queries) error {
		row, err := s.getInSection(ctx, q, segment, id)
		if err != nil {
			return err
		}
		// tags are needed for revalidation after the cascade removes them
		post, err = s.toPostWith(ctx, q, row)
		if err != nil {
			return err
		}
		if err := q.DeletePost(ctx, id); err != nil {
			return fmt.Errorf("deleting post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("post deleted", "id", id, "section", segment, "slug", post.Slug)
	s.revalidate(ctx, post, "")
	return nil
}

func (s *ContentService) getInSection(ctx context.Context, q *store.Queries, segment string, id int64) (store.Post, error) {
	row, err := q.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Post{}, ErrNotFound
		}
		return store.Post{}, fmt.Errorf("getting post: %w", err)
	}
	if row.Section != segment {
		return store.Post{}, ErrNotFound
	}
	return row, nil
}

func (s *ContentService) ensureSlugFree(ctx context.Context, q *store.Queries, segment, slug string, selfID int64) error {
	existing, err := q.GetPostBySectionAndSlug(ctx, store.GetPostBySectionAndSlugParams{
		Section: segment,
		Slug:    slug,
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("checking slug: %w", err)
	case existing.ID != selfID:
		return invalid("slug", "already used in this section")
	}
	return nil
}

// setTags attaches the section tag plus the requested tags.
func (s *ContentService) setTags(ctx context.Context, q *store.Queries, postID int64, segment string, names []string) error {
	type tagRow struct{ slug, name string }
	var rows []tagRow
	if e, ok := s.sections.Lookup(segment); ok {
		rows = append(rows, tagRow{e.Tag, e.Title})
	}
	for _, name := range names {
		rows = append(rows, tagRow{util.Slugify(name), strings.TrimSpace(name)})
	}

	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.slug == "" || seen[r.slug] {
			continue
		}
		seen[r.slug] = true
		tag, err := q.UpsertTag(ctx, store.UpsertTagParams{Slug: r.slug, Name: r.name})
		if err != nil {
			return fmt.Errorf("saving tag %s: %w", r.slug, err)
		}
		if err := q.AddPostTag(ctx, store.AddPostTagParams{PostID: postID, TagID: tag.ID}); err != nil {
			return fmt.Errorf("tagging post: %w", err)
		}
	}
	return nil
}

// revalidate invalidates everything that may show post. oldSlug is set when
// the slug changed. Failures are logged; the write already succeeded.
func (s *ContentService) revalidate(ctx context.Context, post Post, oldSlug string) {
	if s.reval == nil {
		return
	}

	ev := revalidate.PostChanged{
		Model:    "post",
		Slug:     post.Slug,
		TagSlugs: post.Tags,
	}
	if post.Section == section.Portfolio {
		ev.Seeds.Paths = append(ev.Seeds.Paths, "/"+section.Portfolio)
	}
	if oldSlug != "" {
		ev.Seeds.Tags = append(ev.Seeds.Tags, revalidate.PostTag(oldSlug))
		for _, tag := range post.Tags {
			if seg, ok := s.sections.SectionForTag(tag); ok {
				ev.Seeds.Paths = append(ev.Seeds.Paths, revalidate.DetailPath(seg, oldSlug))
			}
		}
	}

	if _, err := s.reval.Apply(ctx, ev); err != nil {
		s.logger.Error("revalidation after write failed", "post_id", post.ID, "error", err)
	}
}

func (s *ContentService) normalize(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, invalid("title", "is required")
	}

	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = util.Slugify(in.Title)
	}
	if !util.IsValidSlug(in.Slug) {
		return in, invalid("slug", "must be lowercase letters, digits and single hyphens")
	}

	if in.Format == "" {
		in.Format = render.FormatHTML
	}
	if !render.ValidFormat(in.Format) {
		return in, invalid("format", "must be html or markdown")
	}

	if in.Status == "" {
		in.Status = StatusDraft
	}
	if in.Status != StatusDraft && in.Status != StatusPublished {
		return in, invalid("status", "must be draft or published")
	}

	if strings.TrimSpace(in.Content) == "" {
		return in, invalid("content", "is required")
	}
	if strings.TrimSpace(in.Excerpt) == "" {
		html, err := render.HTML(in.Format, in.Content)
		if err != nil {
			return in, invalid("content", err.Error())
		}
		in.Excerpt = render.Excerpt(html, 200)
	}
	return in, nil
}

func publishedAt(in Input, current sql.NullTime, now time.Time) sql.NullTime {
	if in.Status != StatusPublished {
		return sql.NullTime{}
	}
	if in.PublishedAt != nil {
		return util.NullTime(in.PublishedAt.UTC())
	}
	if current.Valid {
		return current
	}
	return util.NullTime(now)
}

func encodeMeta(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeMeta(s string) map[string]any {
	m := map[string]any{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

func (s *ContentService) inTx(ctx context.Context, fn func(q *store.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *ContentService) toPosts(ctx context.Context, rows []store.Post) ([]Post, error) {
	posts := make([]Post, 0, len(rows))
	for _, row := range rows {
		p, err := s.toPost(ctx, row)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *ContentService) toPost(ctx context.Context, row store.Post) (Post, error) {
	return s.toPostWith(ctx, s.queries, row)
}

func (s *ContentService) toPostWith(ctx context.Context, q *store.Queries, row store.Post) (Post, error) {
	tags, err := q.GetPostTags(ctx, row.ID)
	if err != nil {
		return Post{}, fmt.Errorf("loading tags: %w", err)
	}
	html, err := render.HTML(row.Format, row.Content)
	if err != nil {
		s.logger.Warn("rendering post body", "post_id", row.ID, "error", err)
	}

	p := Post{
		ID:        row.ID,
		Title:     row.Title,
		Slug:      row.Slug,
		Section:   row.Section,
		Excerpt:   row.Excerpt,
		Content:   row.Content,
		HTML:      html,
		Format:    row.Format,
		Status:    row.Status,
		Tags:      make([]string, 0, len(tags)),
		Meta:      decodeMeta(row.Meta),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	for _, t := range tags {
		p.Tags = append(p.Tags, t.Slug)
	}
	if row.PublishedAt.Valid {
		t := row.PublishedAt.Time
		p.PublishedAt = &t
	}
	return p, nil
}
