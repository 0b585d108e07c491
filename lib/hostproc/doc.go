// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostproc is the production window platform: every window is
// a separate UI-host process that connects back to the controller's
// channel hub.
//
// The controller side is [Platform], which implements window.Platform.
// Create launches a host process, waits for it to attach to the hub
// with its window id, and sends it an init frame carrying the window's
// name, props, capabilities and metadata. Native window operations are
// control frames on the host:control channel; the host answers with
// state reports on host:state, which is how the platform learns focus,
// visibility and size. A window is closed when its host process exits.
//
// The host side is [Host], used by cmd/casement-host and by tests. It
// applies control frames to its local window state and reports every
// change back.
package hostproc
