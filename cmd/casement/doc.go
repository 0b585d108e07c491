// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Casement is the controller. It owns the window registry, serves the
// channel hub on a Unix socket, and spawns one casement-host process
// per window.
//
// Usage:
//
//	casement [--config file] [--goto file:line:col] [--pwd dir] [workspace]
//
// Only one controller runs per lock file. A second invocation forwards
// its workspace and --goto location to the running controller and
// exits.
package main
