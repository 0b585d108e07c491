// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for Casement
// binaries: the one place a binary writes to stderr before its logger
// exists and exits non-zero, the shutdown context every main uses, and
// the stderr logger each binary installs.
package process
