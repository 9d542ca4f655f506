package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "folio-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() { _ = db.Close() }
}

func createTestPost(t *testing.T, q *Queries, section, slug, status string) Post {
	t.Helper()
	now := time.Now().UTC()
	var published sql.NullTime
	if status == "published" {
		published = sql.NullTime{Time: now, Valid: true}
	}
	p, err := q.CreatePost(context.Background(), CreatePostParams{
		Title:       "Title " + slug,
		Slug:        slug,
		Excerpt:     "excerpt of " + slug,
		Content:     "<p>body of " + slug + "</p>",
		Format:      "html",
		Section:     section,
		Status:      status,
		Meta:        "{}",
		PublishedAt: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreatePost(%s/%s): %v", section, slug, err)
	}
	return p
}

func tagPost(t *testing.T, q *Queries, postID int64, slug string) {
	t.Helper()
	ctx := context.Background()
	tag, err := q.UpsertTag(ctx, UpsertTagParams{Slug: slug, Name: slug})
	if err != nil {
		t.Fatalf("UpsertTag: %v", err)
	}
	if err := q.AddPostTag(ctx, AddPostTagParams{PostID: postID, TagID: tag.ID}); err != nil {
		t.Fatalf("AddPostTag: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	v, err := MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v < 3 {
		t.Errorf("version = %d, want >= 3", v)
	}
}

func TestCreatePost_SlugUniquePerSection(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	q := New(db)

	createTestPost(t, q, "blog", "hello", "published")
	// same slug in another section is fine
	createTestPost(t, q, "articles", "hello", "published")

	now := time.Now()
	_, err := q.CreatePost(context.Background(), CreatePostParams{
		Title: "dup", Slug: "hello", Section: "blog", Status: "draft", Format: "html", Meta: "{}",
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected unique constraint violation for duplicate slug in section")
	}
}

func TestUpdateAndDeletePost(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	p := createTestPost(t, q, "blog", "first", "draft")

	updated, err := q.UpdatePost(ctx, UpdatePostParams{
		Title: "Renamed", Slug: "renamed", Excerpt: p.Excerpt, Content: p.Content, Format: p.Format,
		Status: "published", Meta: `{"k":"v"}`, PublishedAt: sql.NullTime{Time: time.Now(), Valid: true},
		UpdatedAt: time.Now(), ID: p.ID,
	})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.Slug != "renamed" || updated.Status != "published" {
		t.Errorf("updated = %+v", updated)
	}

	if err := q.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := q.GetPostByID(ctx, p.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPostByID after delete: err = %v, want sql.ErrNoRows", err)
	}
}

func TestSearchPublishedPosts(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	a := createTestPost(t, q, "blog", "golang-tips", "published")
	b := createTestPost(t, q, "articles", "privacy-law", "published")
	c := createTestPost(t, q, "blog", "draft-golang", "draft")
	tagPost(t, q, a.ID, "blog")
	tagPost(t, q, b.ID, "articles")
	tagPost(t, q, c.ID, "blog")

	tests := []struct {
		name    string
		query   string
		tag     string
		wantLen int
	}{
		{"all", "", "", 2},
		{"by text", "GOLANG", "", 1},
		{"by tag", "", "articles", 1},
		{"text and tag mismatch", "golang", "articles", 0},
		{"wildcard escaped", "%", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := LikePattern(tt.query)
			posts, err := q.SearchPublishedPosts(ctx, SearchPublishedPostsParams{
				Pattern: pattern, TagSlug: tt.tag, Limit: 10, Offset: 0,
			})
			if err != nil {
				t.Fatalf("SearchPublishedPosts: %v", err)
			}
			if len(posts) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(posts), tt.wantLen)
			}
			count, err := q.CountSearchPublishedPosts(ctx, CountSearchPublishedPostsParams{Pattern: pattern, TagSlug: tt.tag})
			if err != nil {
				t.Fatalf("CountSearchPublishedPosts: %v", err)
			}
			if count != int64(tt.wantLen) {
				t.Errorf("count = %d, want %d", count, tt.wantLen)
			}
		})
	}
}

func TestGetPublishedPostByTagAndSlug(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	p := createTestPost(t, q, "books", "dune", "published")
	tagPost(t, q, p.ID, "books")

	got, err := q.GetPublishedPostByTagAndSlug(ctx, GetPublishedPostByTagAndSlugParams{TagSlug: "books", Slug: "dune"})
	if err != nil {
		t.Fatalf("GetPublishedPostByTagAndSlug: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %d, want %d", got.ID, p.ID)
	}

	_, err = q.GetPublishedPostByTagAndSlug(ctx, GetPublishedPostByTagAndSlugParams{TagSlug: "blog", Slug: "dune"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("wrong tag: err = %v, want sql.ErrNoRows", err)
	}
}

func TestUpsertSubscriber_RotatesToken(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	first, err := q.UpsertSubscriber(ctx, UpsertSubscriberParams{Email: "a@b.co", UnsubscribeToken: "t1", Now: time.Now()})
	if err != nil {
		t.Fatalf("UpsertSubscriber: %v", err)
	}
	if err := q.UnsubscribeSubscriber(ctx, UnsubscribeSubscriberParams{UpdatedAt: time.Now(), ID: first.ID}); err != nil {
		t.Fatalf("UnsubscribeSubscriber: %v", err)
	}

	second, err := q.UpsertSubscriber(ctx, UpsertSubscriberParams{Email: "a@b.co", UnsubscribeToken: "t2", Now: time.Now()})
	if err != nil {
		t.Fatalf("UpsertSubscriber again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID = %d, want same row %d", second.ID, first.ID)
	}
	if !second.IsSubscribed {
		t.Error("IsSubscribed = false after resubscribe")
	}
	if second.UnsubscribeToken != "t2" {
		t.Errorf("token = %q, want t2", second.UnsubscribeToken)
	}
	if _, err := q.GetSubscriberByToken(ctx, "t1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("old token lookup: err = %v, want sql.ErrNoRows", err)
	}

	active, err := q.ListActiveSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListActiveSubscribers: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("active = %d, want 1", len(active))
	}
}

func TestAdmins(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	ctx := context.Background()
	q := New(db)

	a, err := q.CreateAdmin(ctx, CreateAdminParams{Email: "admin@example.com", PasswordHash: "hash", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	got, err := q.GetAdminByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetAdminByEmail: %v", err)
	}
	if got.ID != a.ID || got.LastLoginAt.Valid {
		t.Errorf("got = %+v", got)
	}
	if err := q.UpdateAdminLastLogin(ctx, UpdateAdminLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true}, ID: a.ID,
	}); err != nil {
		t.Fatalf("UpdateAdminLastLogin: %v", err)
	}
	got, _ = q.GetAdminByID(ctx, a.ID)
	if !got.LastLoginAt.Valid {
		t.Error("LastLoginAt not set")
	}
}
