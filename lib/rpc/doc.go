// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements named services on top of [channel] frames.
//
// The controller registers implementations with a [Registry]. Each
// registered name gets one listener on "request:<name>" across every
// attached UI-host; requests are dispatched on their own goroutine and
// answered on "response:<name>" back to the host that asked.
//
// A UI-host calls a service through a [Proxy]. Calls are correlated by
// a per-proxy request id that starts at 0 and never repeats; responses
// carrying an id the proxy is not waiting for are ignored.
//
// Wire shape:
//
//	request:<name>   (method string, requestId uint64, args...)
//	response:<name>  (requestId uint64, error {message, stack} | null, result)
//	event:<name>     (eventName string, args...)
//
// The proxy imposes no timeout of its own. A call whose service host
// goes away stays pending until the caller's context ends; callers that
// cannot wait forever pass a context with a deadline.
package rpc
