// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/folio/internal/cache"
	"github.com/olegiv/folio/internal/revalidate"
	"github.com/olegiv/folio/internal/section"
	"github.com/olegiv/folio/internal/service"
)

const (
	feedItems    = 20
	sitemapItems = 5000
)

// FeedHandler serves the RSS feed, the sitemap and robots.txt.
type FeedHandler struct {
	content   *service.ContentService
	sections  *section.Table
	siteURL   string
	siteTitle string
}

// NewFeedHandler creates a feed handler. siteURL is the public base URL.
func NewFeedHandler(content *service.ContentService, sections *section.Table, siteURL, siteTitle string) *FeedHandler {
	return &FeedHandler{
		content:   content,
		sections:  sections,
		siteURL:   strings.TrimRight(siteURL, "/"),
		siteTitle: siteTitle,
	}
}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Categories  []string `xml:"category"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (h *FeedHandler) postURL(p service.Post) string {
	return h.siteURL + revalidate.DetailPath(p.Section, p.Slug)
}

// RSS handles GET /feed.xml.
func (h *FeedHandler) RSS(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.Recent(r.Context(), feedItems)
	if err != nil {
		logAndInternalError(w, "building feed", "error", err)
		return
	}

	feed := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       h.siteTitle,
			Link:        h.siteURL + "/",
			Description: "Latest posts from " + h.siteTitle,
		},
	}
	for i, p := range posts {
		item := rssItem{
			Title:       p.Title,
			Link:        h.postURL(p),
			GUID:        h.postURL(p),
			Description: p.Excerpt,
			Categories:  p.Tags,
		}
		if p.PublishedAt != nil {
			item.PubDate = p.PublishedAt.UTC().Format(time.RFC1123Z)
			if i == 0 {
				feed.Channel.LastBuildDate = item.PubDate
			}
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	cache.Tag(r, revalidate.TagPosts)
	writeXML(w, "application/rss+xml; charset=utf-8", feed)
}

// Sitemap handles GET /sitemap.xml.
func (h *FeedHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.Recent(r.Context(), sitemapItems)
	if err != nil {
		logAndInternalError(w, "building sitemap", "error", err)
		return
	}

	set := urlset{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{Loc: h.siteURL + "/"})
	for _, e := range h.sections.Entries() {
		set.URLs = append(set.URLs, sitemapURL{Loc: h.siteURL + revalidate.SectionPath(e.Segment)})
	}
	set.URLs = append(set.URLs, sitemapURL{Loc: h.siteURL + revalidate.SectionPath(section.Portfolio)})
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     h.postURL(p),
			LastMod: p.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}

	cache.Tag(r, revalidate.TagPosts)
	writeXML(w, "application/xml; charset=utf-8", set)
}

// robotsDisallow lists API prefixes crawlers should skip.
var robotsDisallow = []string{"/api/", "/healthz", "/metrics"}

// Robots handles GET /robots.txt.
func (h *FeedHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	var sb strings.Builder
	sb.WriteString("User-agent: *\n")
	for _, p := range robotsDisallow {
		sb.WriteString("Disallow: " + p + "\n")
	}
	sb.WriteString("Allow: /\n")
	if h.siteURL != "" {
		sb.WriteString("\nSitemap: " + h.siteURL + "/sitemap.xml\n")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(sb.String()))
}

func writeXML(w http.ResponseWriter, contentType string, v any) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		logAndInternalError(w, "encoding xml", "error", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}
