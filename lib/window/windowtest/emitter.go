// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package windowtest

import (
	"sync"

	"github.com/casement-foundation/casement/lib/event"
)

// Emitted is one recorded Emit call.
type Emitted struct {
	Name      string
	Payload   any
	Condition event.Condition
}

// Emitter records every event a window.Service emits.
type Emitter struct {
	mu     sync.Mutex
	events []Emitted
}

func (e *Emitter) Emit(name string, payload any, condition event.Condition) {
	e.mu.Lock()
	e.events = append(e.events, Emitted{Name: name, Payload: payload, Condition: condition})
	e.mu.Unlock()
}

// Events returns the recorded events named name, in emit order. An
// empty name returns all of them.
func (e *Emitter) Events(name string) []Emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Emitted
	for _, emitted := range e.events {
		if name == "" || emitted.Name == name {
			out = append(out, emitted)
		}
	}
	return out
}
