// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package revalidate

import (
	"sort"
)

// Cache tags shared with the handlers that declare them.
const (
	TagPosts = "posts"
	TagTags  = "tags"
)

// PostTag is the per-post cache tag.
func PostTag(slug string) string { return "post:" + slug }

// TagTag is the per-tag cache tag.
func TagTag(slug string) string { return "tag:" + slug }

// SectionPath is the listing path of a section.
func SectionPath(section string) string { return "/" + section }

// DetailPath is the detail page path of an entry in a section.
func DetailPath(section, slug string) string { return "/" + section + "/" + slug }

// Sections reports which tag slugs back a site section.
type Sections interface {
	SectionForTag(tag string) (string, bool)
}

// Plan is the deduplicated, sorted set of tags and paths to invalidate.
type Plan struct {
	Tags  []string
	Paths []string
}

// Empty reports whether the plan invalidates nothing.
func (p Plan) Empty() bool {
	return len(p.Tags) == 0 && len(p.Paths) == 0
}

type planBuilder struct {
	tags  map[string]struct{}
	paths map[string]struct{}
}

func newPlanBuilder() *planBuilder {
	return &planBuilder{tags: map[string]struct{}{}, paths: map[string]struct{}{}}
}

func (b *planBuilder) tag(t ...string) {
	for _, s := range t {
		b.tags[s] = struct{}{}
	}
}

func (b *planBuilder) path(p ...string) {
	for _, s := range p {
		b.paths[s] = struct{}{}
	}
}

func (b *planBuilder) seed(s Seeds) {
	b.tag(s.Tags...)
	b.path(s.Paths...)
}

func (b *planBuilder) build() Plan {
	return Plan{Tags: sortedKeys(b.tags), Paths: sortedKeys(b.paths)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Mapper turns events into invalidation plans.
type Mapper struct {
	sections Sections
}

// NewMapper creates a mapper that resolves section paths through sections.
func NewMapper(sections Sections) *Mapper {
	return &Mapper{sections: sections}
}

// Plan computes the tags and paths for ev. Rejected events yield their
// reason as the error and an empty plan.
func (m *Mapper) Plan(ev Event) (Plan, error) {
	b := newPlanBuilder()

	switch e := ev.(type) {
	case Rejected:
		return Plan{}, e.Reason
	case PostChanged:
		b.seed(e.Seeds)
		m.post(b, e)
	case TagChanged:
		b.seed(e.Seeds)
		m.tagEntity(b, e)
	case PostTagChanged:
		b.seed(e.Post.Seeds)
		m.post(b, e.Post)
		m.tagEntity(b, e.Tag)
	case Unclassified:
		b.seed(e.Seeds)
	default:
		return Plan{}, ErrMalformed
	}

	return b.build(), nil
}

func (m *Mapper) post(b *planBuilder, e PostChanged) {
	b.tag(TagPosts)
	if e.Slug != "" {
		b.tag(PostTag(e.Slug))
	}
	for _, t := range e.TagSlugs {
		b.tag(TagTag(t))
		section, ok := m.sections.SectionForTag(t)
		if !ok {
			continue
		}
		b.path(SectionPath(section))
		if e.Slug != "" {
			b.path(DetailPath(section, e.Slug))
		}
	}
}

func (m *Mapper) tagEntity(b *planBuilder, e TagChanged) {
	b.tag(TagTags)
	if e.Slug == "" {
		return
	}
	b.tag(TagTag(e.Slug))
	if section, ok := m.sections.SectionForTag(e.Slug); ok {
		b.path(SectionPath(section))
	}
}
