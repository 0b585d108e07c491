// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Every deadline in casement (wait-for-reply timeouts, delayed window
// show, storage debounce) is scheduled through a Clock so that tests can
// drive time explicitly. Production code uses Real(); tests use Fake()
// and call Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	bus := event.NewBus(hub, resolver, logger, event.WithClock(c))
//	futures := bus.EmitThen("save", payload, event.Condition{})
//	c.WaitForTimers(len(futures))
//	c.Advance(time.Minute) // unanswered futures fail with ErrReplyTimeout
//
// WaitForTimers closes the race between a goroutine registering a timer
// and the test advancing past it.
package clock
