// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package revalidate

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"
)

// Rejection reasons.
var (
	ErrUnauthorized = errors.New("invalid or missing secret")
	ErrMalformed    = errors.New("malformed payload")
)

// payload is the webhook body as CMSs send it. Only Decode sees it.
type payload struct {
	Secret     string   `json:"secret"`
	Model      string   `json:"model"`
	Collection string   `json:"collection"`
	APIID      string   `json:"apiId"`
	Entry      *entry   `json:"entry"`
	Tags       []string `json:"tags"`
	Paths      []string `json:"paths"`
}

type entry struct {
	Slug string     `json:"slug"`
	Tags []entryTag `json:"tags"`
}

// entryTag accepts either {"slug": "x"} or a bare "x".
type entryTag struct {
	Slug string
}

func (t *entryTag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Slug)
	}
	var obj struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Slug = obj.Slug
	return nil
}

func (p payload) modelName() string {
	for _, name := range []string{p.Model, p.Collection, p.APIID} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

// Event is a validated webhook notification. It is one of Rejected,
// PostChanged, TagChanged, PostTagChanged or Unclassified.
type Event interface {
	event()
}

// Seeds are the explicit tags and paths carried by a payload.
type Seeds struct {
	Tags  []string
	Paths []string
}

// Rejected is a payload that must not trigger any invalidation.
type Rejected struct {
	Reason error
}

// PostChanged reports a changed post entry.
type PostChanged struct {
	Model    string
	Slug     string
	TagSlugs []string
	Seeds
}

// TagChanged reports a changed tag entity. Slug is the tag's own slug.
type TagChanged struct {
	Model string
	Slug  string
	Seeds
}

// PostTagChanged is produced when the model name contains both "post" and
// "tag"; both mappings apply to the same entry.
type PostTagChanged struct {
	Post PostChanged
	Tag  TagChanged
}

// Unclassified carries only explicit seeds.
type Unclassified struct {
	Model string
	Seeds
}

func (Rejected) event()       {}
func (PostChanged) event()    {}
func (TagChanged) event()     {}
func (PostTagChanged) event() {}
func (Unclassified) event()   {}

// Decode authenticates and classifies a webhook body. The secret may come
// from querySecret or from the payload's "secret" field; an empty configured
// secret rejects everything. Classification uses case-insensitive substring
// matches on the model name.
func Decode(body []byte, querySecret, secret string) Event {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		if secretMatches(secret, querySecret) {
			return Rejected{Reason: ErrMalformed}
		}
		return Rejected{Reason: ErrUnauthorized}
	}
	if !secretMatches(secret, querySecret, p.Secret) {
		return Rejected{Reason: ErrUnauthorized}
	}

	seeds := Seeds{Tags: clean(p.Tags), Paths: clean(p.Paths)}
	model := p.modelName()
	name := strings.ToLower(model)

	var slug string
	var tagSlugs []string
	if p.Entry != nil {
		slug = strings.TrimSpace(p.Entry.Slug)
		for _, t := range p.Entry.Tags {
			if s := strings.TrimSpace(t.Slug); s != "" {
				tagSlugs = append(tagSlugs, s)
			}
		}
	}

	isPost := strings.Contains(name, "post")
	isTag := strings.Contains(name, "tag")

	post := PostChanged{Model: model, Slug: slug, TagSlugs: tagSlugs, Seeds: seeds}
	tag := TagChanged{Model: model, Slug: slug, Seeds: seeds}

	switch {
	case isPost && isTag:
		return PostTagChanged{Post: post, Tag: tag}
	case isPost:
		return post
	case isTag:
		return tag
	default:
		return Unclassified{Model: model, Seeds: seeds}
	}
}

func secretMatches(secret string, candidates ...string) bool {
	if secret == "" {
		return false
	}
	for _, c := range candidates {
		if c != "" && subtle.ConstantTimeCompare([]byte(c), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}

func clean(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
