// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/xml"
	"net/http"
	"strings"
	"testing"
)

func TestRSS(t *testing.T) {
	e := newContentEnv(t)
	e.create(t, "blog", published("First", "go"))
	e.create(t, "portfolio", published("Showcase"))

	h := NewFeedHandler(e.content, e.sections, "https://example.com/", "Folio")
	rec := get(t, http.HandlerFunc(h.RSS), "/feed.xml")
	expectStatus(t, rec, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	var feed rss
	if err := xml.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("unmarshal rss: %v", err)
	}
	if feed.Version != "2.0" || feed.Channel.Title != "Folio" || feed.Channel.Link != "https://example.com/" {
		t.Errorf("channel = %+v", feed.Channel)
	}
	if len(feed.Channel.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(feed.Channel.Items))
	}

	links := map[string]bool{}
	for _, item := range feed.Channel.Items {
		links[item.Link] = true
		if item.PubDate == "" {
			t.Errorf("item %q has no pubDate", item.Title)
		}
	}
	for _, want := range []string{"https://example.com/blog/first", "https://example.com/portfolio/showcase"} {
		if !links[want] {
			t.Errorf("missing item link %s in %v", want, links)
		}
	}
}

func TestSitemap(t *testing.T) {
	e := newContentEnv(t)
	e.create(t, "books", published("Some Book"))

	h := NewFeedHandler(e.content, e.sections, "https://example.com", "Folio")
	rec := get(t, http.HandlerFunc(h.Sitemap), "/sitemap.xml")
	expectStatus(t, rec, http.StatusOK)

	var set urlset
	if err := xml.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("unmarshal sitemap: %v", err)
	}
	locs := map[string]bool{}
	for _, u := range set.URLs {
		locs[u.Loc] = true
	}
	for _, want := range []string{
		"https://example.com/",
		"https://example.com/blog",
		"https://example.com/data-protection",
		"https://example.com/portfolio",
		"https://example.com/books/some-book",
	} {
		if !locs[want] {
			t.Errorf("sitemap missing %s", want)
		}
	}
	// five table sections, the portfolio, the home page and one post
	if len(set.URLs) != 8 {
		t.Errorf("len(urls) = %d, want 8", len(set.URLs))
	}
}

func TestRobots(t *testing.T) {
	e := newContentEnv(t)
	h := NewFeedHandler(e.content, e.sections, "https://example.com/", "Folio")
	rec := get(t, http.HandlerFunc(h.Robots), "/robots.txt")
	expectStatus(t, rec, http.StatusOK)

	body := rec.Body.String()
	for _, want := range []string{"User-agent: *", "Disallow: /api/", "Sitemap: https://example.com/sitemap.xml"} {
		if !strings.Contains(body, want) {
			t.Errorf("robots.txt missing %q:\n%s", want, body)
		}
	}
}
