// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel implements the named, ordered, asynchronous message
// pipe between the controller process and each UI-host process.
//
// Every connection carries a sequence of CBOR-encoded [Message] frames.
// A frame names a channel ("request:window", "event-service:metadata",
// ...) and carries positional arguments that the receiver decodes one at
// a time. Frames sent on a connection arrive in send order; nothing is
// promised across connections, so every reply carries a correlation id.
//
// The controller runs a [Hub]: it accepts UI-host connections on a Unix
// socket, reads a hello frame naming the window id the host serves, and
// merges all hosts into one listener table, so a controller listener on
// "request:window" hears requests from every window. Frames carrying a
// Target window id are relayed by the hub to that window with Sender set
// to the originating window, which is how one window talks to another.
//
// A UI-host holds a single [Conn] obtained from [Dial]. Listeners run on
// the connection's read goroutine in frame order and must not block; a
// listener that needs to wait for another frame hands the work to its
// own goroutine.
package channel
