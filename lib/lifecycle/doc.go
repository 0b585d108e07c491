// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle holds the small primitives every casement component
// uses to undo registrations and to gate work on a readiness signal.
//
// A [Disposable] is returned by anything that installs a listener or a
// registration; calling Dispose removes exactly what was installed and
// is idempotent. A [Readiness] is a one-shot signal: work that arrives
// before the signal waits for it instead of being dropped.
package lifecycle
