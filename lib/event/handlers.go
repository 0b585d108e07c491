// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// WaitHandler answers a wait-for-reply. Its result is the reply
// payload. A handler that fails sends no reply, so the emitter observes
// a timeout.
type WaitHandler func(ctx context.Context, event *Event) (any, error)

// replyFunc sends result for the request identified by count back to
// the emitter of event.
type replyFunc func(event *Event, count uint64, result any) error

// waitHandlers runs wait handlers on their own goroutines and tracks
// registrations, at most one per channel.
type waitHandlers struct {
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	active sync.WaitGroup

	mu         sync.Mutex
	registered map[string]lifecycle.Disposable
	closed     bool
}

func newWaitHandlers(logger *slog.Logger) *waitHandlers {
	ctx, cancel := context.WithCancel(context.Background())
	return &waitHandlers{
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		registered: make(map[string]lifecycle.Disposable),
	}
}

// register installs handler on waitChannel through listen. Panics if a
// handler is already registered on that channel.
func (w *waitHandlers) register(listen listenFunc, name, waitChannel string, handler WaitHandler, reply replyFunc) lifecycle.Disposable {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.registered[waitChannel]; exists {
		panic(fmt.Sprintf("event: duplicate wait handler for %q", waitChannel))
	}

	subscription := listen(waitChannel, func(source channel.Endpoint, msg channel.Message) {
		if msg.NumArgs() < 2 {
			// A plain event on a shared channel; only wait
			// requests carry correlation metadata.
			return
		}
		var meta waitMeta
		if err := msg.Arg(1, &meta); err != nil {
			w.logger.Warn("malformed wait request", "channel", waitChannel, "error", err)
			return
		}
		event := newEvent(name, source, msg)

		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.active.Add(1)
		w.mu.Unlock()

		go func() {
			defer w.active.Done()
			result, err := w.invoke(handler, event)
			if err != nil {
				w.logger.Error("wait handler failed",
					"channel", waitChannel,
					"window_id", event.Sender,
					"error", err,
				)
				return
			}
			if err := reply(event, meta.Count, result); err != nil && !errors.Is(err, channel.ErrDestroyed) {
				w.logger.Error("sending reply failed", "channel", waitChannel, "error", err)
			}
		}()
	})

	disposable := lifecycle.DisposeFunc(func() {
		subscription.Dispose()
		w.mu.Lock()
		delete(w.registered, waitChannel)
		w.mu.Unlock()
	})
	w.registered[waitChannel] = disposable
	return disposable
}

func (w *waitHandlers) invoke(handler WaitHandler, event *Event) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v\n%s", recovered, debug.Stack())
		}
	}()
	return handler(w.ctx, event)
}

// close removes every handler, cancels running ones and waits for them.
func (w *waitHandlers) close() {
	w.mu.Lock()
	w.closed = true
	registered := make([]lifecycle.Disposable, 0, len(w.registered))
	for _, disposable := range w.registered {
		registered = append(registered, disposable)
	}
	w.mu.Unlock()

	for _, disposable := range registered {
		disposable.Dispose()
	}
	w.cancel()
	w.active.Wait()
}
