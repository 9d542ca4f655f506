// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package section maps URL section segments to the tag that filters their content.
package section

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Portfolio is the segment served by the dedicated portfolio page.
// It is never looked up in the tag table.
const Portfolio = "portfolio"

// ErrUnknownSection is returned for segments that do not resolve.
var ErrUnknownSection = errors.New("unknown section")

// Kind tells the caller which page type a segment resolves to.
type Kind int

const (
	KindTagListing Kind = iota
	KindPortfolio
)

// Route is the result of resolving a segment.
type Route struct {
	Kind    Kind
	Segment string
	Tag     string // empty for KindPortfolio
}

// Entry is one row of the section table.
type Entry struct {
	Segment string `yaml:"segment"`
	Tag     string `yaml:"tag"`
	Title   string `yaml:"title"`
}

// DefaultEntries is the built-in section table.
var DefaultEntries = []Entry{
	{Segment: "blog", Tag: "blog", Title: "Blog"},
	{Segment: "articles", Tag: "articles", Title: "Articles"},
	{Segment: "books", Tag: "books", Title: "Books"},
	{Segment: "podcasts", Tag: "podcasts", Title: "Podcasts"},
	{Segment: "data-protection", Tag: "data-protection", Title: "Data Protection"},
}

// Table is an immutable segment-to-tag lookup.
type Table struct {
	bySegment map[string]Entry
	byTag     map[string]Entry
	entries   []Entry
}

// NewTable builds a table from entries. Empty fields, duplicate segments or
// tags, and any attempt to map the portfolio segment are rejected.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		bySegment: make(map[string]Entry, len(entries)),
		byTag:     make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		if e.Segment == "" || e.Tag == "" {
			return nil, fmt.Errorf("section entry %+v: segment and tag are required", e)
		}
		if e.Segment == Portfolio {
			return nil, fmt.Errorf("section %q is reserved", Portfolio)
		}
		if _, dup := t.bySegment[e.Segment]; dup {
			return nil, fmt.Errorf("duplicate section segment %q", e.Segment)
		}
		if _, dup := t.byTag[e.Tag]; dup {
			return nil, fmt.Errorf("duplicate section tag %q", e.Tag)
		}
		if e.Title == "" {
			e.Title = e.Segment
		}
		t.bySegment[e.Segment] = e
		t.byTag[e.Tag] = e
		t.entries = append(t.entries, e)
	}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Segment < t.entries[j].Segment })
	return t, nil
}

// Default returns the built-in table.
func Default() *Table {
	t, err := NewTable(DefaultEntries)
	if err != nil {
		panic(err)
	}
	return t
}

type fileFormat struct {
	Sections []Entry `yaml:"sections"`
}

// LoadFile reads a YAML section table. An empty path returns the default table.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sections file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sections file: %w", err)
	}
	if len(f.Sections) == 0 {
		return nil, errors.New("sections file defines no sections")
	}
	return NewTable(f.Sections)
}

// Resolve maps a URL segment to a route using exact string equality.
func (t *Table) Resolve(segment string) (Route, error) {
	if segment == Portfolio {
		return Route{Kind: KindPortfolio, Segment: Portfolio}, nil
	}
	e, ok := t.bySegment[segment]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownSection, segment)
	}
	return Route{Kind: KindTagListing, Segment: e.Segment, Tag: e.Tag}, nil
}

// SectionForTag returns the segment whose listing is filtered by tag.
func (t *Table) SectionForTag(tag string) (string, bool) {
	e, ok := t.byTag[tag]
	return e.Segment, ok
}

// Lookup returns the entry for a segment.
func (t *Table) Lookup(segment string) (Entry, bool) {
	e, ok := t.bySegment[segment]
	return e, ok
}

// Entries returns the table rows sorted by segment.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
