// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"errors"
	"fmt"

	"github.com/casement-foundation/casement/lib/codec"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// helloChannel is the first frame a UI-host sends. Its single argument
// is the window id the host serves; 0 marks a tool connection.
const helloChannel = "hello"

// ErrDestroyed is returned when sending on an endpoint whose connection
// has gone away.
var ErrDestroyed = errors.New("channel: endpoint destroyed")

// Message is one frame on a connection.
type Message struct {
	Channel string             `cbor:"channel"`
	Args    []codec.RawMessage `cbor:"args,omitempty"`

	// Sender is the window id of the originating UI-host. The hub
	// overwrites it with the id the connection authenticated as, so
	// hosts cannot impersonate each other. Zero for frames from the
	// controller.
	Sender uint32 `cbor:"sender,omitempty"`

	// Target asks the hub to relay the frame to another window
	// instead of dispatching it to controller listeners.
	Target uint32 `cbor:"target,omitempty"`
}

// NumArgs returns the number of positional arguments.
func (m Message) NumArgs() int {
	return len(m.Args)
}

// Arg decodes argument i into v. A missing argument leaves v untouched,
// the same as an explicit null.
func (m Message) Arg(i int, v any) error {
	if i >= len(m.Args) {
		return nil
	}
	if err := codec.Unmarshal(m.Args[i], v); err != nil {
		return fmt.Errorf("decoding argument %d of %s: %w", i, m.Channel, err)
	}
	return nil
}

// RawArg returns argument i undecoded, or nil when absent.
func (m Message) RawArg(i int) codec.RawMessage {
	if i >= len(m.Args) {
		return nil
	}
	return m.Args[i]
}

// Listener receives frames for one channel. source is the endpoint the
// frame arrived on; replies go back through it.
type Listener func(source Endpoint, msg Message)

// Endpoint is one side of a controller/UI-host connection.
type Endpoint interface {
	// ID returns the window id of the UI-host on the other end (on the
	// controller) or of this UI-host (on the host).
	ID() uint32

	// Send encodes args and queues a frame on channel.
	Send(channel string, args ...any) error

	// SendTo queues a frame that the hub relays to window target.
	SendTo(target uint32, channel string, args ...any) error

	// On registers listener for frames arriving on channel.
	On(channel string, listener Listener) lifecycle.Disposable

	// Once registers a listener that is removed before its first call.
	Once(channel string, listener Listener) lifecycle.Disposable

	// RemoveAll drops every listener on channel.
	RemoveAll(channel string)

	// ListenerCount returns the number of listeners on channel.
	ListenerCount(channel string) int

	// Destroyed reports whether the connection has gone away.
	Destroyed() bool

	// Done is closed when the connection goes away.
	Done() <-chan struct{}

	// Close flushes queued frames and closes the connection.
	Close() error
}

// Router is the controller's view of every attached UI-host: one
// listener table across all hosts plus lookup by window id.
type Router interface {
	On(channel string, listener Listener) lifecycle.Disposable
	Once(channel string, listener Listener) lifecycle.Disposable
	RemoveAll(channel string)
	ListenerCount(channel string) int

	// Endpoint returns the attached host serving window id.
	Endpoint(id uint32) (Endpoint, bool)

	// Endpoints returns every attached window host, ordered by id.
	Endpoints() []Endpoint
}
