package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const postColumns = `p.id, p.title, p.slug, p.excerpt, p.content, p.format, p.section, p.status, p.meta, p.published_at, p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var i Post
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.Excerpt,
		&i.Content,
		&i.Format,
		&i.Section,
		&i.Status,
		&i.Meta,
		&i.PublishedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	defer func() { _ = rows.Close() }()
	var items []Post
	for rows.Next() {
		i, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LikePattern turns a free-text query into a LIKE pattern with % and _ escaped.
// A blank query yields "", which the search queries treat as "match everything".
func LikePattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

const createPost = `INSERT INTO posts (title, slug, excerpt, content, format, section, status, meta, published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, title, slug, excerpt, content, format, section, status, meta, published_at, created_at, updated_at`

type CreatePostParams struct {
	Title       string
	Slug        string
	Excerpt     string
	Content     string
	Format      string
	Section     string
	Status      string
	Meta        string
	PublishedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.Title,
		arg.Slug,
		arg.Excerpt,
		arg.Content,
		arg.Format,
		arg.Section,
		arg.Status,
		arg.Meta,
		arg.PublishedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPost(row)
}

const updatePost = `UPDATE posts
SET title = ?, slug = ?, excerpt = ?, content = ?, format = ?, status = ?, meta = ?, published_at = ?, updated_at = ?
WHERE id = ?
RETURNING id, title, slug, excerpt, content, format, section, status, meta, published_at, created_at, updated_at`

type UpdatePostParams struct {
	Title       string
	Slug        string
	Excerpt     string
	Content     string
	Format      string
	Status      string
	Meta        string
	PublishedAt sql.NullTime
	UpdatedAt   time.Time
	ID          int64
}

func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, updatePost,
		arg.Title,
		arg.Slug,
		arg.Excerpt,
		arg.Content,
		arg.Format,
		arg.Status,
		arg.Meta,
		arg.PublishedAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanPost(row)
}

const deletePost = `DELETE FROM posts WHERE id = ?`

func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deletePost, id)
	return err
}

const getPostByID = `SELECT ` + postColumns + ` FROM posts p WHERE p.id = ?`

func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostByID, id))
}

const getPostBySectionAndSlug = `SELECT ` + postColumns + ` FROM posts p WHERE p.section = ? AND p.slug = ?`

type GetPostBySectionAndSlugParams struct {
	Section string
	Slug    string
}

func (q *Queries) GetPostBySectionAndSlug(ctx context.Context, arg GetPostBySectionAndSlugParams) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostBySectionAndSlug, arg.Section, arg.Slug))
}

const getPublishedPostByTagAndSlug = `SELECT ` + postColumns + ` FROM posts p
JOIN post_tags pt ON pt.post_id = p.id
JOIN tags t ON t.id = pt.tag_id
WHERE t.slug = ? AND p.slug = ? AND p.status = 'published'
ORDER BY p.published_at DESC, p.id DESC
LIMIT 1`

type GetPublishedPostByTagAndSlugParams struct {
	TagSlug string
	Slug    string
}

func (q *Queries) GetPublishedPostByTagAndSlug(ctx context.Context, arg GetPublishedPostByTagAndSlugParams) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPublishedPostByTagAndSlug, arg.TagSlug, arg.Slug))
}

const listPostsBySection = `SELECT ` + postColumns + ` FROM posts p
WHERE p.section = ?1 AND (?2 = '' OR p.status = ?2)
ORDER BY COALESCE(p.published_at, p.created_at) DESC, p.id DESC
LIMIT ?3 OFFSET ?4`

type ListPostsBySectionParams struct {
	Section string
	Status  string // empty means any status
	Limit   int64
	Offset  int64
}

func (q *Queries) ListPostsBySection(ctx context.Context, arg ListPostsBySectionParams) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listPostsBySection, arg.Section, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

const countPostsBySection = `SELECT COUNT(*) FROM posts p WHERE p.section = ?1 AND (?2 = '' OR p.status = ?2)`

type CountPostsBySectionParams struct {
	Section string
	Status  string
}

func (q *Queries) CountPostsBySection(ctx context.Context, arg CountPostsBySectionParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPostsBySection, arg.Section, arg.Status).Scan(&count)
	return count, err
}

const searchFilter = `p.status = 'published'
  AND (?1 = '' OR p.title LIKE ?1 ESCAPE '\' OR p.excerpt LIKE ?1 ESCAPE '\' OR p.content LIKE ?1 ESCAPE '\')
  AND (?2 = '' OR EXISTS (
    SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
    WHERE pt.post_id = p.id AND t.slug = ?2
  ))`

const searchPublishedPosts = `SELECT ` + postColumns + ` FROM posts p
WHERE ` + searchFilter + `
ORDER BY p.published_at DESC, p.id DESC
LIMIT ?3 OFFSET ?4`

type SearchPublishedPostsParams struct {
	Pattern string // from LikePattern; empty matches all
	TagSlug string // empty matches all
	Limit   int64
	Offset  int64
}

func (q *Queries) SearchPublishedPosts(ctx context.Context, arg SearchPublishedPostsParams) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, searchPublishedPosts, arg.Pattern, arg.TagSlug, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

const countSearchPublishedPosts = `SELECT COUNT(*) FROM posts p WHERE ` + searchFilter

type CountSearchPublishedPostsParams struct {
	Pattern string
	TagSlug string
}

func (q *Queries) CountSearchPublishedPosts(ctx context.Context, arg CountSearchPublishedPostsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSearchPublishedPosts, arg.Pattern, arg.TagSlug).Scan(&count)
	return count, err
}
