// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package event implements named events between the controller and the
// UI-hosts, in three forms:
//
//   - fire-and-forget: Emit / On / Once on "event-service:<name>"
//   - wait-for-reply: EmitThen / OnWait. The emitter sends
//     (payload, {count}) on "event-service:onWait:<name>" and the
//     handler answers on "event-service:onReply:<name>:<count>".
//   - window to window: EmitToWebContents / OnWebContents and their
//     Then / Wait forms, relayed through the hub on
//     "event-service:onWebContentsWait:<name>" with replies on
//     "event-service:onWebContentsReply:<name>:<count>".
//
// Every wait-for-reply produces a [Future]. A reply that does not
// arrive within the reply timeout (60 seconds unless configured) fails
// that future with [ErrReplyTimeout]; a broadcast returns one future
// per target window, so one window timing out does not affect the
// others. The reply listener and the deadline timer are removed on
// every completion path.
//
// The controller side is [Bus]; a UI-host uses [HostBus].
package event
