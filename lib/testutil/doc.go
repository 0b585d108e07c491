// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Casement packages.
//
// [SocketDir] creates a short temporary directory in /tmp for Unix
// domain sockets, whose paths are limited to 108 bytes and so cannot
// live under a deeply nested t.TempDir().
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so tests that wait on goroutines never
// hang the suite. They are the only place tests use wall-clock
// timeouts; reply deadlines and window timeouts are driven with
// clock.FakeClock instead.
//
// [Logger] returns a logger that only surfaces errors, so expected
// warnings do not clutter test output.
//
// All helpers call t.Fatalf on failure rather than returning errors.
//
// This package has no Casement-internal dependencies.
package testutil
