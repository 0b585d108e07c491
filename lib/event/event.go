// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
	"strconv"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/codec"
)

// DefaultReplyTimeout bounds every wait-for-reply.
const DefaultReplyTimeout = 60 * time.Second

// ErrReplyTimeout is the cause of a wait-for-reply that received no
// reply in time. The wrapped error names the reply channel.
var ErrReplyTimeout = errors.New("reply timeout")

const prefix = "event-service:"

// Channel returns the fire-and-forget channel for event name.
func Channel(name string) string { return prefix + name }

// WaitChannel returns the channel wait-for-reply requests for name
// travel on.
func WaitChannel(name string) string { return prefix + "onWait:" + name }

// ReplyChannel returns the channel the reply to request count travels on.
func ReplyChannel(name string, count uint64) string {
	return prefix + "onReply:" + name + ":" + strconv.FormatUint(count, 10)
}

// WebContentsChannel returns the window-to-window channel for name.
func WebContentsChannel(name string) string { return prefix + "onWebContentsWait:" + name }

// WebContentsReplyChannel returns the window-to-window reply channel.
func WebContentsReplyChannel(name string, count uint64) string {
	return prefix + "onWebContentsReply:" + name + ":" + strconv.FormatUint(count, 10)
}

// waitMeta travels as the second argument of every wait-for-reply
// request.
type waitMeta struct {
	Count uint64 `cbor:"count"`
}

// Event is one delivered event.
type Event struct {
	Name string

	// Sender is the window id of the emitting UI-host, 0 when the
	// controller emitted it.
	Sender uint32

	// Source is the endpoint the event arrived on.
	Source channel.Endpoint

	Payload codec.RawMessage
}

// Decode decodes the payload into v.
func (e *Event) Decode(v any) error {
	return codec.Unmarshal(e.Payload, v)
}

func newEvent(name string, source channel.Endpoint, msg channel.Message) *Event {
	return &Event{
		Name:    name,
		Sender:  msg.Sender,
		Source:  source,
		Payload: msg.RawArg(0),
	}
}

// Listener receives fire-and-forget events.
type Listener func(event *Event)

// Condition selects the windows an event is sent to. The first set
// field wins, in the order WindowName, WindowID, OnlyFocused; a zero
// Condition selects every open window.
type Condition struct {
	WindowName  string
	WindowID    uint32
	OnlyFocused bool
}

// Resolver answers window queries for Condition resolution.
type Resolver interface {
	// WindowsByName returns the ids of live windows named name.
	WindowsByName(name string) []uint32

	// WindowExists reports whether id names a live window.
	WindowExists(id uint32) bool

	// FocusedWindow returns the focused window, if any.
	FocusedWindow() (uint32, bool)

	// AllWindows returns every live window id.
	AllWindows() []uint32
}

// Resolve maps condition to the concrete set of target windows.
func Resolve(resolver Resolver, condition Condition) []uint32 {
	switch {
	case condition.WindowName != "":
		return resolver.WindowsByName(condition.WindowName)
	case condition.WindowID != 0:
		if resolver.WindowExists(condition.WindowID) {
			return []uint32{condition.WindowID}
		}
		return nil
	case condition.OnlyFocused:
		if id, ok := resolver.FocusedWindow(); ok {
			return []uint32{id}
		}
		return nil
	default:
		return resolver.AllWindows()
	}
}
