// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Injected at build time via ldflags:
//
//	-X github.com/olegiv/folio/internal/version.Version=v1.2.3
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info contains build-time version information.
type Info struct {
	Version   string `json:"version"`    // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string `json:"git_commit"` // Short git commit hash (e.g., "abc1234")
	BuildTime string `json:"build_time"` // Build timestamp in RFC3339 format
	GoVersion string `json:"go_version"`
}

// Get returns the ldflags values, filling gaps from the binary's embedded
// VCS settings when the build did not set them.
func Get() Info {
	return fromBuildInfo(Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}, readBuildInfo)
}

var readBuildInfo = debug.ReadBuildInfo

func fromBuildInfo(info Info, read func() (*debug.BuildInfo, bool)) Info {
	bi, ok := read()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		if s.Value == "" {
			continue
		}
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = shortCommit(s.Value)
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String renders the one-line form printed by "folio version".
func (i Info) String() string {
	return fmt.Sprintf("folio %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildTime)
}
