// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for Casement
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build (RFC 3339)
//   - [Version] -- semantic version string (set manually for releases)
//
// These default to "unknown" / "0.1.0-dev" when not injected, which
// occurs during development builds and test runs. A version ending in
// "-dev" marks a development build; [IsDev] reports it and the
// controller's display name gains a "-dev" suffix.
//
// For example:
//
//	go build -ldflags "-X github.com/casement-foundation/casement/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
