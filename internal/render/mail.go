// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// WelcomeData feeds the subscription confirmation email.
type WelcomeData struct {
	SiteTitle      string
	SiteURL        string
	UnsubscribeURL string
}

// BroadcastData feeds a newsletter issue.
type BroadcastData struct {
	SiteTitle      string
	SiteURL        string
	Subject        string
	Body           template.HTML
	UnsubscribeURL string
}

// WelcomeEmail renders the email sent after subscribing.
func WelcomeEmail(data WelcomeData) (string, error) {
	return execute("welcome.html", data)
}

// BroadcastEmail renders a newsletter issue.
func BroadcastEmail(data BroadcastData) (string, error) {
	return execute("broadcast.html", data)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
