// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/olegiv/folio/internal/render"
	"github.com/olegiv/folio/internal/store"
	"github.com/olegiv/folio/internal/version"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "folio ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--json", "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var info version.Info
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decoding %q: %v", out.String(), err)
	}
	if info.Version == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"serve", "migrate", "admin", "subscribers", "newsletter", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]string{
		"issue.md":       render.FormatMarkdown,
		"ISSUE.MARKDOWN": render.FormatMarkdown,
		"issue.html":     render.FormatHTML,
		"issue":          render.FormatHTML,
	}
	for path, want := range tests {
		if got := formatFor(path); got != want {
			t.Errorf("formatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSubscribersTable(t *testing.T) {
	out := subscribersTable([]store.Subscriber{
		{ID: 7, Email: "a@example.com", IsSubscribed: true},
		{ID: 8, Email: "b@example.com"},
	})
	for _, want := range []string{"ID", "a@example.com", "active", "unsubscribed"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}})
	if !strings.Contains(out, "only") {
		t.Errorf("table = %q", out)
	}
	if renderTable(nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}
