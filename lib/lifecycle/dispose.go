// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import "sync"

// Disposable undoes one registration.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable. The function runs at
// most once no matter how many times Dispose is called.
func DisposeFunc(f func()) Disposable {
	return &onceDisposer{f: f}
}

type onceDisposer struct {
	once sync.Once
	f    func()
}

func (d *onceDisposer) Dispose() {
	d.once.Do(d.f)
}

// Group collects disposables and disposes them together in reverse
// order of addition. The zero value is ready to use.
type Group struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add registers d with the group. If the group was already disposed,
// d is disposed immediately.
func (g *Group) Add(d Disposable) {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		d.Dispose()
		return
	}
	g.items = append(g.items, d)
	g.mu.Unlock()
}

// Dispose disposes every item added so far.
func (g *Group) Dispose() {
	g.mu.Lock()
	items := g.items
	g.items = nil
	g.disposed = true
	g.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}
