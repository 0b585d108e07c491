// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage is the controller's key/value store: each item is a
// JSON file named <item>.json under a root directory, cached in memory
// after the first read.
//
// Files may be edited by hand; they are read as JSONC (comments and
// trailing commas allowed) and an fsnotify watcher on the root picks up
// outside edits, drops the cached copy and reports a [Change]. The
// service's own writes are recognized by content hash and do not
// produce a second change.
package storage
