package store

import (
	"context"
)

const upsertTag = `INSERT INTO tags (slug, name) VALUES (?, ?)
ON CONFLICT(slug) DO UPDATE SET name = excluded.name
RETURNING id, slug, name`

type UpsertTagParams struct {
	Slug string
	Name string
}

func (q *Queries) UpsertTag(ctx context.Context, arg UpsertTagParams) (Tag, error) {
	var i Tag
	err := q.db.QueryRowContext(ctx, upsertTag, arg.Slug, arg.Name).Scan(&i.ID, &i.Slug, &i.Name)
	return i, err
}

const getTagBySlug = `SELECT id, slug, name FROM tags WHERE slug = ?`

func (q *Queries) GetTagBySlug(ctx context.Context, slug string) (Tag, error) {
	var i Tag
	err := q.db.QueryRowContext(ctx, getTagBySlug, slug).Scan(&i.ID, &i.Slug, &i.Name)
	return i, err
}

const listTags = `SELECT id, slug, name FROM tags ORDER BY slug`

func (q *Queries) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, listTags)
	if err != nil {
		return nil, err
	}
	return scanTags(rows)
}

const addPostTag = `INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`

type AddPostTagParams struct {
	PostID int64
	TagID  int64
}

func (q *Queries) AddPostTag(ctx context.Context, arg AddPostTagParams) error {
	_, err := q.db.ExecContext(ctx, addPostTag, arg.PostID, arg.TagID)
	return err
}

const clearPostTags = `DELETE FROM post_tags WHERE post_id = ?`

func (q *Queries) ClearPostTags(ctx context.Context, postID int64) error {
	_, err := q.db.ExecContext(ctx, clearPostTags, postID)
	return err
}

const getPostTags = `SELECT t.id, t.slug, t.name FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
WHERE pt.post_id = ?
ORDER BY t.slug`

func (q *Queries) GetPostTags(ctx context.Context, postID int64) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, getPostTags, postID)
	if err != nil {
		return nil, err
	}
	return scanTags(rows)
}

func scanTags(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}) ([]Tag, error) {
	defer func() { _ = rows.Close() }()
	var items []Tag
	for rows.Next() {
		var i Tag
		if err := rows.Scan(&i.ID, &i.Slug, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
