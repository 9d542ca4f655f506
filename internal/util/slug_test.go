// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"special characters", "Hello, World!", "hello-world"},
		{"numbers", "Page 123", "page-123"},
		{"accents", "Café résumé", "cafe-resume"},
		{"multiple spaces", "Hello   World", "hello-world"},
		{"hyphens", "Hello - World", "hello-world"},
		{"leading and trailing spaces", "  Hello World  ", "hello-world"},
		{"only symbols", "!@#$%^&*()", ""},
		{"german umlauts", "Über München", "uber-munchen"},
		{"cyrillic", "Привет мир", "privet-mir"},
		{"tabs and newlines", "GDPR\tand\nyou", "gdpr-and-you"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 60))
	if len(got) > MaxSlugLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug %q ends with hyphen", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"hello-world", true},
		{"page-123", true},
		{"a", true},
		{"", false},
		{"Hello", false},
		{"-hello", false},
		{"hello-", false},
		{"hello--world", false},
		{"hello_world", false},
		{"hello world", false},
		{strings.Repeat("a", MaxSlugLength+1), false},
	}
	for _, tt := range tests {
		if got := IsValidSlug(tt.slug); got != tt.want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}

func TestNullTime(t *testing.T) {
	if NullTime(time.Time{}).Valid {
		t.Error("zero time should be NULL")
	}
	now := time.Now()
	if nt := NullTime(now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("NullTime(now) = %+v", nt)
	}
}
