// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// Config configures a controller Bus.
type Config struct {
	// Router delivers frames to and from the UI-hosts.
	Router channel.Router

	// Resolver maps Conditions to windows.
	Resolver Resolver

	// Clock drives reply deadlines. Defaults to the real clock.
	Clock clock.Clock

	// ReplyTimeout bounds each wait-for-reply. Defaults to
	// DefaultReplyTimeout.
	ReplyTimeout time.Duration

	Logger *slog.Logger
}

// Bus is the controller side of the event service.
type Bus struct {
	router   channel.Router
	resolver Resolver
	awaiter  awaiter
	handlers *waitHandlers
	logger   *slog.Logger

	// count allocates reply correlation values. Never reused.
	count atomic.Uint64
}

// NewBus creates a controller event bus.
func NewBus(config Config) *Bus {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.ReplyTimeout <= 0 {
		config.ReplyTimeout = DefaultReplyTimeout
	}
	return &Bus{
		router:   config.Router,
		resolver: config.Resolver,
		awaiter: awaiter{
			clock:   config.Clock,
			timeout: config.ReplyTimeout,
			logger:  config.Logger,
		},
		handlers: newWaitHandlers(config.Logger),
		logger:   config.Logger,
	}
}

// On listens for name emitted by any UI-host.
func (b *Bus) On(name string, listener Listener) lifecycle.Disposable {
	return b.router.On(Channel(name), func(source channel.Endpoint, msg channel.Message) {
		listener(newEvent(name, source, msg))
	})
}

// Once listens for the next emission of name.
func (b *Bus) Once(name string, listener Listener) lifecycle.Disposable {
	return b.router.Once(Channel(name), func(source channel.Endpoint, msg channel.Message) {
		listener(newEvent(name, source, msg))
	})
}

// Emit sends payload to the windows condition selects. Windows whose
// host is gone or not yet attached are skipped.
func (b *Bus) Emit(name string, payload any, condition Condition) {
	for _, id := range Resolve(b.resolver, condition) {
		endpoint, ok := b.router.Endpoint(id)
		if !ok || endpoint.Destroyed() {
			continue
		}
		if err := endpoint.Send(Channel(name), payload); err != nil && !errors.Is(err, channel.ErrDestroyed) {
			b.logger.Error("emit failed", "event", name, "window_id", id, "error", err)
		}
	}
}

// OnWait answers EmitThen calls for name from UI-hosts. Panics if a
// handler for name is already registered.
func (b *Bus) OnWait(name string, handler WaitHandler) lifecycle.Disposable {
	return b.handlers.register(b.router.On, name, WaitChannel(name), handler,
		func(event *Event, count uint64, result any) error {
			if event.Source.Destroyed() {
				return nil
			}
			return event.Source.Send(ReplyChannel(name, count), result)
		})
}

// EmitThen sends payload to every window condition selects and returns
// one future per window. A window whose host is gone or not attached
// gets a future already resolved to null; a window that does not reply
// within the reply timeout gets a future failed with ErrReplyTimeout.
func (b *Bus) EmitThen(name string, payload any, condition Condition) []*Future {
	targets := Resolve(b.resolver, condition)
	futures := make([]*Future, 0, len(targets))
	for _, id := range targets {
		endpoint, ok := b.router.Endpoint(id)
		if !ok || endpoint.Destroyed() {
			futures = append(futures, resolvedFuture(id))
			continue
		}

		count := b.count.Add(1) - 1
		future, fail := b.awaiter.await(b.router.On, ReplyChannel(name, count), id)
		if err := endpoint.Send(WaitChannel(name), payload, waitMeta{Count: count}); err != nil {
			if errors.Is(err, channel.ErrDestroyed) {
				fail(nil)
			} else {
				fail(fmt.Errorf("emitting %s to window %d: %w", name, id, err))
			}
		}
		futures = append(futures, future)
	}
	return futures
}

// Close removes wait handlers and waits for running ones to return.
// Outstanding futures still complete by reply or timeout.
func (b *Bus) Close() {
	b.handlers.close()
}
