// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// IsDev reports whether this is a development build.
func IsDev() bool {
	return strings.HasSuffix(Version, "-dev")
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Versions is the structured build description reported by the meta
// service.
type Versions struct {
	Type      string `cbor:"type" json:"type"`
	Version   string `cbor:"clientVersion" json:"clientVersion"`
	Commit    string `cbor:"clientCommit" json:"clientCommit"`
	BuildTime string `cbor:"timestamp" json:"timestamp"`
	Go        string `cbor:"go" json:"go"`
	Platform  string `cbor:"platform" json:"platform"`
}

// Current returns the running binary's Versions.
func Current() Versions {
	buildType := "release"
	if IsDev() {
		buildType = "dev"
	}
	commit := GitCommit
	if GitDirty == "true" {
		commit += "-dirty"
	}
	return Versions{
		Type:      buildType,
		Version:   Version,
		Commit:    commit,
		BuildTime: BuildTime,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Report renders v as the multi-line text shown in an about dialog.
func (v Versions) Report() string {
	commit := v.Commit
	if len(commit) > 9 {
		commit = commit[:9]
	}
	date := v.BuildTime
	if parsed, err := time.Parse(time.RFC3339, v.BuildTime); err == nil {
		date = parsed.Local().Format(time.DateTime)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", v.Type)
	fmt.Fprintf(&b, "Version: %s\n", v.Version)
	fmt.Fprintf(&b, "Commit: %s\n", commit)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Go: %s\n", v.Go)
	fmt.Fprintf(&b, "Platform: %s\n", v.Platform)
	return b.String()
}
