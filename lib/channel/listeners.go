// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"sync"
	"sync/atomic"

	"github.com/casement-foundation/casement/lib/lifecycle"
)

// listenerTable maps channel names to listeners. A table is owned by a
// host-side Conn, or shared by every controller-side Conn of a Hub.
type listenerTable struct {
	mu        sync.Mutex
	byChannel map[string][]*listenerEntry
}

type listenerEntry struct {
	listener Listener
	once     bool
	removed  atomic.Bool
}

func newListenerTable() *listenerTable {
	return &listenerTable{byChannel: make(map[string][]*listenerEntry)}
}

func (t *listenerTable) add(channel string, listener Listener, once bool) lifecycle.Disposable {
	entry := &listenerEntry{listener: listener, once: once}
	t.mu.Lock()
	t.byChannel[channel] = append(t.byChannel[channel], entry)
	t.mu.Unlock()
	return lifecycle.DisposeFunc(func() {
		t.remove(channel, entry)
	})
}

// remove unlinks entry and reports whether this call removed it.
func (t *listenerTable) remove(channel string, entry *listenerEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !entry.removed.CompareAndSwap(false, true) {
		return false
	}
	entries := t.byChannel[channel]
	for i, candidate := range entries {
		if candidate == entry {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(t.byChannel, channel)
	} else {
		t.byChannel[channel] = entries
	}
	return true
}

func (t *listenerTable) removeAll(channel string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range t.byChannel[channel] {
		entry.removed.Store(true)
	}
	delete(t.byChannel, channel)
}

func (t *listenerTable) count(channel string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byChannel[channel])
}

// dispatch calls every listener registered on msg.Channel. Listeners
// removed while the snapshot is being walked are skipped, and a once
// listener fires for exactly one frame even when several connections
// dispatch into the same table concurrently.
func (t *listenerTable) dispatch(source Endpoint, msg Message) int {
	t.mu.Lock()
	snapshot := append([]*listenerEntry(nil), t.byChannel[msg.Channel]...)
	t.mu.Unlock()

	delivered := 0
	for _, entry := range snapshot {
		if entry.once {
			if !t.remove(msg.Channel, entry) {
				continue
			}
		} else if entry.removed.Load() {
			continue
		}
		entry.listener(source, msg)
		delivered++
	}
	return delivered
}
