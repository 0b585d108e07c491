// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/codec"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// reservedMethod is the stub method name used for event subscription.
const reservedMethod = "on"

// Proxy calls methods of one named service over an endpoint. Request
// ids are per proxy, so use a single Proxy per service and endpoint.
type Proxy struct {
	endpoint channel.Endpoint
	service  string

	mu       sync.Mutex
	nextID   uint64
	pending  map[uint64]chan response
	listener lifecycle.Disposable
	closed   bool
}

type response struct {
	remote *RemoteError
	result codec.RawMessage
}

// NewProxy returns a stub for service on endpoint. No frames are sent
// or listened for until the first call.
func NewProxy(endpoint channel.Endpoint, service string) *Proxy {
	return &Proxy{
		endpoint: endpoint,
		service:  service,
		pending:  make(map[uint64]chan response),
	}
}

// Service returns the service name.
func (p *Proxy) Service() string { return p.service }

// Call invokes method with args and decodes the result into result,
// which may be nil to discard it. A failure raised by the
// implementation is returned as a *RemoteError.
//
// Call waits until the response arrives or ctx ends; the proxy has no
// deadline of its own.
func (p *Proxy) Call(ctx context.Context, method string, result any, args ...any) error {
	if method == reservedMethod {
		return ErrReservedMethod
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProxyClosed
	}
	if p.listener == nil {
		p.listener = p.endpoint.On(ResponseChannel(p.service), p.onResponse)
	}
	requestID := p.nextID
	p.nextID++
	slot := make(chan response, 1)
	p.pending[requestID] = slot
	p.mu.Unlock()

	frame := append([]any{method, requestID}, args...)
	if err := p.endpoint.Send(RequestChannel(p.service), frame...); err != nil {
		p.release(requestID)
		return fmt.Errorf("calling %s.%s: %w", p.service, method, err)
	}

	select {
	case reply, ok := <-slot:
		if !ok {
			return ErrProxyClosed
		}
		if reply.remote != nil {
			reply.remote.Service = p.service
			reply.remote.Method = method
			return reply.remote
		}
		if result == nil || codec.IsNull(reply.result) {
			return nil
		}
		if err := codec.Unmarshal(reply.result, result); err != nil {
			return fmt.Errorf("decoding %s.%s result: %w", p.service, method, err)
		}
		return nil
	case <-ctx.Done():
		p.release(requestID)
		return ctx.Err()
	}
}

func (p *Proxy) release(requestID uint64) {
	p.mu.Lock()
	delete(p.pending, requestID)
	p.mu.Unlock()
}

func (p *Proxy) onResponse(_ channel.Endpoint, msg channel.Message) {
	var requestID uint64
	if err := msg.Arg(0, &requestID); err != nil {
		return
	}

	p.mu.Lock()
	slot, ok := p.pending[requestID]
	if ok {
		delete(p.pending, requestID)
	}
	p.mu.Unlock()
	if !ok {
		// Another call's response, or one whose caller gave up.
		return
	}

	var reply response
	if raw := msg.RawArg(1); !codec.IsNull(raw) {
		remote := &RemoteError{}
		if err := codec.Unmarshal(raw, remote); err != nil {
			remote.Message = fmt.Sprintf("undecodable error: %v", err)
		}
		reply.remote = remote
	} else {
		reply.result = msg.RawArg(2)
	}
	slot <- reply
}

// Pending returns the number of calls awaiting a response.
func (p *Proxy) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// On subscribes to event pushed by the service. listener receives the
// event's arguments, with the event name stripped.
func (p *Proxy) On(event string, listener func(msg channel.Message)) lifecycle.Disposable {
	return p.endpoint.On(EventChannel(p.service), func(_ channel.Endpoint, msg channel.Message) {
		if msg.NumArgs() == 0 {
			return
		}
		var name string
		if err := msg.Arg(0, &name); err != nil || name != event {
			return
		}
		shifted := msg
		shifted.Args = msg.Args[1:]
		listener(shifted)
	})
}

// Close removes the response listener and fails every pending call
// with ErrProxyClosed.
func (p *Proxy) Close() {
	p.mu.Lock()
	p.closed = true
	pending := p.pending
	p.pending = make(map[uint64]chan response)
	listener := p.listener
	p.listener = nil
	p.mu.Unlock()

	if listener != nil {
		listener.Dispose()
	}
	for _, slot := range pending {
		close(slot)
	}
}
