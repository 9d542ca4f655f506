// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package revalidate

import (
	"errors"
	"reflect"
	"testing"
)

const secret = "s3cret"

func TestDecode_Authentication(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		querySecret string
		configured  string
		wantReason  error
	}{
		{"missing secret", `{"model":"post"}`, "", secret, ErrUnauthorized},
		{"wrong payload secret", `{"model":"post","secret":"nope"}`, "", secret, ErrUnauthorized},
		{"wrong query secret", `{"model":"post"}`, "nope", secret, ErrUnauthorized},
		{"nothing configured", `{"model":"post","secret":""}`, "", "", ErrUnauthorized},
		{"malformed without secret", `{not json`, "", secret, ErrUnauthorized},
		{"malformed with query secret", `{not json`, secret, secret, ErrMalformed},
		{"payload secret ok", `{"model":"post","secret":"s3cret"}`, "", secret, nil},
		{"query secret ok", `{"model":"post"}`, secret, secret, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Decode([]byte(tt.body), tt.querySecret, tt.configured)
			rej, rejected := ev.(Rejected)
			if tt.wantReason == nil {
				if rejected {
					t.Fatalf("Decode() rejected with %v, want accepted", rej.Reason)
				}
				return
			}
			if !rejected {
				t.Fatalf("Decode() = %T, want Rejected", ev)
			}
			if !errors.Is(rej.Reason, tt.wantReason) {
				t.Errorf("Reason = %v, want %v", rej.Reason, tt.wantReason)
			}
		})
	}
}

func TestDecode_Classification(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"model":"post"}`, "PostChanged"},
		{`{"model":"BlogPost"}`, "PostChanged"},
		{`{"collection":"posts"}`, "PostChanged"},
		{`{"apiId":"Tag"}`, "TagChanged"},
		{`{"model":"post-tag"}`, "PostTagChanged"},
		{`{"model":"tagged-posts"}`, "PostTagChanged"},
		{`{"model":"author"}`, "Unclassified"},
		{`{}`, "Unclassified"},
		{`{"model":"","collection":"tag"}`, "TagChanged"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			ev := Decode([]byte(tt.body), secret, secret)
			if got := reflect.TypeOf(ev).Name(); got != tt.want {
				t.Errorf("Decode(%s) = %s, want %s", tt.body, got, tt.want)
			}
		})
	}
}

func TestDecode_EntryFields(t *testing.T) {
	body := `{
		"model": "post",
		"entry": {"slug": " hello ", "tags": [{"slug": "blog"}, "golang", {"slug": ""}, {}]},
		"tags": ["custom", " "],
		"paths": ["/", ""]
	}`
	ev := Decode([]byte(body), secret, secret)
	post, ok := ev.(PostChanged)
	if !ok {
		t.Fatalf("Decode() = %T, want PostChanged", ev)
	}
	if post.Slug != "hello" {
		t.Errorf("Slug = %q, want hello", post.Slug)
	}
	if want := []string{"blog", "golang"}; !reflect.DeepEqual(post.TagSlugs, want) {
		t.Errorf("TagSlugs = %v, want %v", post.TagSlugs, want)
	}
	if want := []string{"custom"}; !reflect.DeepEqual(post.Seeds.Tags, want) {
		t.Errorf("Seeds.Tags = %v, want %v", post.Seeds.Tags, want)
	}
	if want := []string{"/"}; !reflect.DeepEqual(post.Seeds.Paths, want) {
		t.Errorf("Seeds.Paths = %v, want %v", post.Seeds.Paths, want)
	}
}

func TestDecode_BadEntryShapeIsMalformed(t *testing.T) {
	ev := Decode([]byte(`{"model":"post","entry":{"tags":[42]}}`), secret, secret)
	rej, ok := ev.(Rejected)
	if !ok || !errors.Is(rej.Reason, ErrMalformed) {
		t.Errorf("Decode() = %#v, want Rejected{ErrMalformed}", ev)
	}
}
