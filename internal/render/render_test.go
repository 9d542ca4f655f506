// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"html/template"
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		body     string
		contains []string
		excludes []string
	}{
		{
			name:     "markdown heading and emphasis",
			format:   FormatMarkdown,
			body:     "# Title\n\nSome *text*.",
			contains: []string{"<h1", "Title</h1>", "<em>text</em>"},
		},
		{
			name:     "markdown raw script stripped",
			format:   FormatMarkdown,
			body:     "hi\n\n<script>alert(1)</script>",
			contains: []string{"hi"},
			excludes: []string{"<script"},
		},
		{
			name:     "html passes safe tags",
			format:   FormatHTML,
			body:     `<p>ok <a href="https://example.com">link</a></p>`,
			contains: []string{"<p>ok", `href="https://example.com"`},
		},
		{
			name:     "html strips handlers",
			format:   FormatHTML,
			body:     `<img src="x.png" onerror="alert(1)">`,
			excludes: []string{"onerror"},
		},
		{
			name:     "empty format treated as html",
			format:   "",
			body:     "<p>plain</p>",
			contains: []string{"<p>plain</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTML(tt.format, tt.body)
			if err != nil {
				t.Fatalf("HTML: %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("output %q missing %q", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("output %q should not contain %q", got, s)
				}
			}
		})
	}
}

func TestHTML_UnknownFormat(t *testing.T) {
	if _, err := HTML("rst", "x"); err == nil {
		t.Error("expected error for unknown format")
	}
	if ValidFormat("rst") || !ValidFormat(FormatMarkdown) {
		t.Error("ValidFormat mismatch")
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("<p>short   text</p>", 50); got != "short text" {
		t.Errorf("Excerpt short = %q", got)
	}
	got := Excerpt("<p>The quick brown fox jumps over the lazy dog</p>", 12)
	if got != "The quick…" {
		t.Errorf("Excerpt long = %q, want %q", got, "The quick…")
	}
}

func TestWelcomeEmail(t *testing.T) {
	out, err := WelcomeEmail(WelcomeData{
		SiteTitle:      "Folio",
		SiteURL:        "https://example.com",
		UnsubscribeURL: "https://example.com/api/newsletter/unsubscribe?token=abc",
	})
	if err != nil {
		t.Fatalf("WelcomeEmail: %v", err)
	}
	if !strings.Contains(out, "token=abc") || !strings.Contains(out, "Folio") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestBroadcastEmail_EscapesSubject(t *testing.T) {
	out, err := BroadcastEmail(BroadcastData{
		SiteTitle: "Folio",
		Subject:   "<b>News</b>",
		Body:      template.HTML("<p>Body</p>"),
	})
	if err != nil {
		t.Fatalf("BroadcastEmail: %v", err)
	}
	if strings.Contains(out, "<b>News</b>") {
		t.Error("subject should be escaped")
	}
	if !strings.Contains(out, "<p>Body</p>") {
		t.Error("body should be rendered as HTML")
	}
}
