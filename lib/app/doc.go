// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package app wires the controller together.
//
// [New] builds the RPC registry, the event bus, and the window
// coordinator on one hub, then registers the window, storage, recent,
// meta and app services. The caller serves the hub, calls
// [App.MakeReady] once it is listening, and [App.Start] for the main
// entry. Invocations forwarded by later processes arrive through
// [App.SecondInstance].
package app
