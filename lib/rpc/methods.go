// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"

	"github.com/casement-foundation/casement/lib/codec"
)

// Handler executes one method call. A non-nil result is encoded as the
// response value.
type Handler func(ctx context.Context, call *Call) (any, error)

// Methods maps method names to handlers.
type Methods map[string]Handler

// Service is a registrable implementation.
type Service interface {
	Methods() Methods
}

// Methods implements Service, so a literal map can be registered
// directly.
func (m Methods) Methods() Methods { return m }

// Call is one incoming request.
type Call struct {
	Service string
	Method  string

	// Sender is the window id of the calling UI-host, 0 for tools.
	Sender uint32

	args []codec.RawMessage
}

// NumArgs returns the number of positional arguments.
func (c *Call) NumArgs() int { return len(c.args) }

// Arg decodes argument i into v. A missing argument leaves v untouched.
func (c *Call) Arg(i int, v any) error {
	if i >= len(c.args) {
		return nil
	}
	if err := codec.Unmarshal(c.args[i], v); err != nil {
		return fmt.Errorf("%s.%s argument %d: %w", c.Service, c.Method, i, err)
	}
	return nil
}

type senderKey struct{}

// SenderFromContext returns the window id of the UI-host whose request
// is being handled, or 0 outside a handler.
func SenderFromContext(ctx context.Context) uint32 {
	id, _ := ctx.Value(senderKey{}).(uint32)
	return id
}

// Func0 adapts a function without arguments.
func Func0[R any](f func(context.Context) (R, error)) Handler {
	return func(ctx context.Context, _ *Call) (any, error) {
		return f(ctx)
	}
}

// Func1 adapts a function of one decoded argument.
func Func1[A, R any](f func(context.Context, A) (R, error)) Handler {
	return func(ctx context.Context, call *Call) (any, error) {
		var a A
		if err := call.Arg(0, &a); err != nil {
			return nil, err
		}
		return f(ctx, a)
	}
}

// Func2 adapts a function of two decoded arguments.
func Func2[A, B, R any](f func(context.Context, A, B) (R, error)) Handler {
	return func(ctx context.Context, call *Call) (any, error) {
		var a A
		var b B
		if err := call.Arg(0, &a); err != nil {
			return nil, err
		}
		if err := call.Arg(1, &b); err != nil {
			return nil, err
		}
		return f(ctx, a, b)
	}
}

// Proc0 adapts a function without arguments or result.
func Proc0(f func(context.Context) error) Handler {
	return func(ctx context.Context, _ *Call) (any, error) {
		return nil, f(ctx)
	}
}

// Proc1 adapts a function of one decoded argument without result.
func Proc1[A any](f func(context.Context, A) error) Handler {
	return func(ctx context.Context, call *Call) (any, error) {
		var a A
		if err := call.Arg(0, &a); err != nil {
			return nil, err
		}
		return nil, f(ctx, a)
	}
}

// Proc2 adapts a function of two decoded arguments without result.
func Proc2[A, B any](f func(context.Context, A, B) error) Handler {
	return func(ctx context.Context, call *Call) (any, error) {
		var a A
		var b B
		if err := call.Arg(0, &a); err != nil {
			return nil, err
		}
		if err := call.Arg(1, &b); err != nil {
			return nil, err
		}
		return nil, f(ctx, a, b)
	}
}
