// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package revalidate

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/olegiv/folio/internal/section"
)

func testMapper(t *testing.T) *Mapper {
	t.Helper()
	table, err := section.NewTable([]section.Entry{
		{Segment: "blog", Tag: "blog"},
		{Segment: "articles", Tag: "articles"},
		{Segment: "datenschutz", Tag: "data-protection"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewMapper(table)
}

func plan(t *testing.T, body string) Plan {
	t.Helper()
	p, err := testMapper(t).Plan(Decode([]byte(body), secret, secret))
	if err != nil {
		t.Fatalf("Plan(%s): %v", body, err)
	}
	return p
}

func TestPlan_Post(t *testing.T) {
	got := plan(t, `{"model":"post","entry":{"slug":"hello","tags":[{"slug":"blog"},{"slug":"golang"},{"slug":"data-protection"}]}}`)

	wantTags := []string{"post:hello", "posts", "tag:blog", "tag:data-protection", "tag:golang"}
	wantPaths := []string{"/blog", "/blog/hello", "/datenschutz", "/datenschutz/hello"}
	if !reflect.DeepEqual(got.Tags, wantTags) {
		t.Errorf("Tags = %v, want %v", got.Tags, wantTags)
	}
	if !reflect.DeepEqual(got.Paths, wantPaths) {
		t.Errorf("Paths = %v, want %v", got.Paths, wantPaths)
	}
}

func TestPlan_PostWithoutSlug(t *testing.T) {
	got := plan(t, `{"model":"post","entry":{"tags":[{"slug":"articles"}]}}`)

	if want := []string{"posts", "tag:articles"}; !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("Tags = %v, want %v", got.Tags, want)
	}
	if want := []string{"/articles"}; !reflect.DeepEqual(got.Paths, want) {
		t.Errorf("Paths = %v, want %v", got.Paths, want)
	}
}

func TestPlan_AlwaysIncludesPostsTagForPostModels(t *testing.T) {
	models := []string{"post", "posts", "Post", "BLOGPOST", "post-tag", "guestpost", "composter"}
	for _, m := range models {
		got := plan(t, `{"model":"`+m+`"}`)
		if !slices.Contains(got.Tags, TagPosts) {
			t.Errorf("model %q: Tags = %v, missing %q", m, got.Tags, TagPosts)
		}
	}
}

func TestPlan_Tag(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTags  []string
		wantPaths []string
	}{
		{
			name:      "known section",
			body:      `{"model":"tag","entry":{"slug":"data-protection"}}`,
			wantTags:  []string{"tag:data-protection", "tags"},
			wantPaths: []string{"/datenschutz"},
		},
		{
			name:      "unknown tag",
			body:      `{"model":"tag","entry":{"slug":"golang"}}`,
			wantTags:  []string{"tag:golang", "tags"},
			wantPaths: []string{},
		},
		{
			name:      "no slug",
			body:      `{"model":"tag"}`,
			wantTags:  []string{"tags"},
			wantPaths: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plan(t, tt.body)
			if !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("Tags = %v, want %v", got.Tags, tt.wantTags)
			}
			if !reflect.DeepEqual(got.Paths, tt.wantPaths) {
				t.Errorf("Paths = %v, want %v", got.Paths, tt.wantPaths)
			}
		})
	}
}

func TestPlan_PostTagTriggersBothBranches(t *testing.T) {
	got := plan(t, `{"model":"post-tag","entry":{"slug":"blog","tags":[{"slug":"articles"}]}}`)

	wantTags := []string{"post:blog", "posts", "tag:articles", "tag:blog", "tags"}
	wantPaths := []string{"/articles", "/articles/blog", "/blog"}
	if !reflect.DeepEqual(got.Tags, wantTags) {
		t.Errorf("Tags = %v, want %v", got.Tags, wantTags)
	}
	if !reflect.DeepEqual(got.Paths, wantPaths) {
		t.Errorf("Paths = %v, want %v", got.Paths, wantPaths)
	}
}

func TestPlan_SeedsAreMergedAndDeduplicated(t *testing.T) {
	got := plan(t, `{"model":"post","entry":{"slug":"a","tags":["blog"]},"tags":["posts","extra","extra"],"paths":["/blog","/","/"]}`)

	if want := []string{"extra", "post:a", "posts", "tag:blog"}; !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("Tags = %v, want %v", got.Tags, want)
	}
	if want := []string{"/", "/blog", "/blog/a"}; !reflect.DeepEqual(got.Paths, want) {
		t.Errorf("Paths = %v, want %v", got.Paths, want)
	}
}

func TestPlan_UnclassifiedUsesOnlySeeds(t *testing.T) {
	got := plan(t, `{"model":"author","entry":{"slug":"me","tags":["blog"]},"paths":["/about"]}`)
	if len(got.Tags) != 0 {
		t.Errorf("Tags = %v, want none", got.Tags)
	}
	if want := []string{"/about"}; !reflect.DeepEqual(got.Paths, want) {
		t.Errorf("Paths = %v, want %v", got.Paths, want)
	}
}

func TestPlan_Rejected(t *testing.T) {
	_, err := testMapper(t).Plan(Rejected{Reason: ErrUnauthorized})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
