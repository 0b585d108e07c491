// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// HostBus is the UI-host side of the event service.
type HostBus struct {
	endpoint channel.Endpoint
	awaiter  awaiter
	handlers *waitHandlers
	logger   *slog.Logger

	count atomic.Uint64
}

// NewHostBus creates the event service for the UI-host connected
// through endpoint. A nil clock selects the real clock; a non-positive
// timeout selects DefaultReplyTimeout.
func NewHostBus(endpoint channel.Endpoint, clk clock.Clock, timeout time.Duration, logger *slog.Logger) *HostBus {
	if clk == nil {
		clk = clock.Real()
	}
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &HostBus{
		endpoint: endpoint,
		awaiter:  awaiter{clock: clk, timeout: timeout, logger: logger},
		handlers: newWaitHandlers(logger),
		logger:   logger,
	}
}

// On listens for name emitted by the controller.
func (h *HostBus) On(name string, listener Listener) lifecycle.Disposable {
	return h.endpoint.On(Channel(name), func(source channel.Endpoint, msg channel.Message) {
		listener(newEvent(name, source, msg))
	})
}

// Once listens for the next emission of name.
func (h *HostBus) Once(name string, listener Listener) lifecycle.Disposable {
	return h.endpoint.Once(Channel(name), func(source channel.Endpoint, msg channel.Message) {
		listener(newEvent(name, source, msg))
	})
}

// Emit sends payload to the controller.
func (h *HostBus) Emit(name string, payload any) error {
	return h.endpoint.Send(Channel(name), payload)
}

// RemoveAll drops every listener for name.
func (h *HostBus) RemoveAll(name string) {
	h.endpoint.RemoveAll(Channel(name))
}

// OnWait answers EmitThen calls for name from the controller.
func (h *HostBus) OnWait(name string, handler WaitHandler) lifecycle.Disposable {
	return h.handlers.register(h.endpoint.On, name, WaitChannel(name), handler,
		func(_ *Event, count uint64, result any) error {
			return h.endpoint.Send(ReplyChannel(name, count), result)
		})
}

// EmitThen sends payload to the controller's OnWait handler for name.
func (h *HostBus) EmitThen(name string, payload any) *Future {
	count := h.count.Add(1) - 1
	future, fail := h.awaiter.await(h.endpoint.On, ReplyChannel(name, count), 0)
	if err := h.endpoint.Send(WaitChannel(name), payload, waitMeta{Count: count}); err != nil {
		fail(fmt.Errorf("emitting %s: %w", name, err))
	}
	return future
}

// OnWebContents listens for name sent directly by another window.
func (h *HostBus) OnWebContents(name string, listener Listener) lifecycle.Disposable {
	return h.endpoint.On(WebContentsChannel(name), func(source channel.Endpoint, msg channel.Message) {
		listener(newEvent(name, source, msg))
	})
}

// EmitToWebContents sends payload to window target.
func (h *HostBus) EmitToWebContents(target uint32, name string, payload any) error {
	return h.endpoint.SendTo(target, WebContentsChannel(name), payload)
}

// OnWebContentsWait answers EmitToWebContentsThen calls for name from
// other windows.
func (h *HostBus) OnWebContentsWait(name string, handler WaitHandler) lifecycle.Disposable {
	return h.handlers.register(h.endpoint.On, name, WebContentsChannel(name), handler,
		func(event *Event, count uint64, result any) error {
			return h.endpoint.SendTo(event.Sender, WebContentsReplyChannel(name, count), result)
		})
}

// EmitToWebContentsThen sends payload to window target and waits for
// its OnWebContentsWait handler to reply.
func (h *HostBus) EmitToWebContentsThen(target uint32, name string, payload any) *Future {
	count := h.count.Add(1) - 1
	future, fail := h.awaiter.await(h.endpoint.On, WebContentsReplyChannel(name, count), target)
	if err := h.endpoint.SendTo(target, WebContentsChannel(name), payload, waitMeta{Count: count}); err != nil {
		fail(fmt.Errorf("emitting %s to window %d: %w", name, target, err))
	}
	return future
}

// Close removes wait handlers and waits for running ones to return.
func (h *HostBus) Close() {
	h.handlers.close()
}
