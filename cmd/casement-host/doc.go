// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Casement-host is the headless reference UI-host. The controller
// starts one per window with the CASEMENT_* environment set; it
// connects back over the hub socket, applies control frames to its
// window state, and logs the events it receives. Real frontends
// implement the same protocol.
package main
