// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render turns stored post bodies into safe HTML and renders
// newsletter email templates.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Body formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// ValidFormat reports whether f is a known body format.
func ValidFormat(f string) bool {
	return f == FormatHTML || f == FormatMarkdown
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	// post bodies come from admins, but still go through UGC policy
	ugcPolicy = bluemonday.UGCPolicy()

	stripPolicy = bluemonday.StrictPolicy()
)

// HTML renders a body of the given format to sanitized HTML.
func HTML(format, body string) (string, error) {
	switch format {
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(body), &buf); err != nil {
			return "", fmt.Errorf("converting markdown: %w", err)
		}
		return ugcPolicy.Sanitize(buf.String()), nil
	case FormatHTML, "":
		return ugcPolicy.Sanitize(body), nil
	default:
		return "", fmt.Errorf("unknown body format %q", format)
	}
}

// PlainText strips all markup from s and collapses whitespace.
func PlainText(s string) string {
	return strings.Join(strings.Fields(stripPolicy.Sanitize(s)), " ")
}

// Excerpt returns the first n runes of the plain-text body, cut on a word
// boundary with an ellipsis when shortened.
func Excerpt(htmlBody string, n int) string {
	text := PlainText(htmlBody)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)[:n]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
