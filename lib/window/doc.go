// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package window tracks the application's windows and coordinates their
// lifecycle.
//
// A window is opened by logical name ("dashboard", "editor", ...). The
// name selects a preset from [Presets]; caller props are merged over it
// and the result decides singleton behavior, visibility, the capability
// bundle ([Capabilities]) and the show timeout. The native window itself
// comes from a [Platform]: lib/hostproc spawns one UI-host process per
// window, windowtest provides an in-memory one.
//
// Every open window has a [Record] in the [Registry]. A record moves
// through Created, Loading, Shown and Hidden, then Closing once a close
// is requested, and Closed when the platform reports the native window
// gone. Only then is it removed from the registry, so code observing the
// registry mid-close sees a Closing record rather than a missing one.
//
// [Service] is the coordinator: it applies the singleton short-circuit,
// waits for platform readiness before creating windows, cascades closes
// from parents to children, routes open-file requests to the window that
// owns a workspace, and exposes all of this as the "window" RPC service.
// [Client] is the typed stub UI-hosts use to call it.
package window
