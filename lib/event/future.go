// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/codec"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// Future is the eventual reply of one window to a wait-for-reply.
type Future struct {
	windowID uint32

	once   sync.Once
	done   chan struct{}
	result codec.RawMessage
	err    error
}

func newFuture(windowID uint32) *Future {
	return &Future{windowID: windowID, done: make(chan struct{})}
}

// resolvedFuture returns a future already completed with a null result.
func resolvedFuture(windowID uint32) *Future {
	future := newFuture(windowID)
	future.complete(nil, nil)
	return future
}

// WindowID returns the window the reply is expected from, 0 for the
// controller.
func (f *Future) WindowID() uint32 { return f.windowID }

// Done is closed once the future has completed.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait returns the raw reply, or the failure that completed the future.
func (f *Future) Wait(ctx context.Context) (codec.RawMessage, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode waits for the reply and decodes it into v. A null reply
// leaves v untouched.
func (f *Future) Decode(ctx context.Context, v any) error {
	raw, err := f.Wait(ctx)
	if err != nil {
		return err
	}
	if codec.IsNull(raw) {
		return nil
	}
	return codec.Unmarshal(raw, v)
}

// complete settles the future and reports whether this call did so.
func (f *Future) complete(result codec.RawMessage, err error) bool {
	settled := false
	f.once.Do(func() {
		f.result = result
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// listenFunc installs a listener; Endpoint.On and Router.On both fit.
type listenFunc func(channel string, listener channel.Listener) lifecycle.Disposable

// awaiter opens reply waits with a deadline on an injected clock.
type awaiter struct {
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// pendingReply ties a future to its listener and timer so that
// whichever completes it first releases both.
type pendingReply struct {
	future *Future

	mu           sync.Mutex
	subscription lifecycle.Disposable
	timer        *clock.Timer
}

// await installs a listener for one reply on replyChannel from window
// from and arms the deadline. It must be called before the request is
// sent so the reply cannot race ahead of the listener.
func (a *awaiter) await(listen listenFunc, replyChannel string, from uint32) (*Future, func(error)) {
	pending := &pendingReply{future: newFuture(from)}

	pending.mu.Lock()
	pending.subscription = listen(replyChannel, func(_ channel.Endpoint, msg channel.Message) {
		if msg.Sender != from {
			a.logger.Warn("ignoring reply from unexpected window",
				"channel", replyChannel,
				"window_id", msg.Sender,
				"expected", from,
			)
			return
		}
		pending.finish(msg.RawArg(0), nil)
	})
	pending.timer = a.clock.AfterFunc(a.timeout, func() {
		pending.finish(nil, fmt.Errorf("%w: %s", ErrReplyTimeout, replyChannel))
	})
	pending.mu.Unlock()

	return pending.future, func(err error) { pending.finish(nil, err) }
}

func (p *pendingReply) finish(result codec.RawMessage, err error) {
	if !p.future.complete(result, err) {
		return
	}
	p.mu.Lock()
	subscription, timer := p.subscription, p.timer
	p.mu.Unlock()
	subscription.Dispose()
	timer.Stop()
}
