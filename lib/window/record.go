// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"context"
	"maps"
	"sync"

	"github.com/casement-foundation/casement/lib/clock"
)

// State is a window's lifecycle position.
type State int

const (
	// StateCreated: the native window exists but has not been asked
	// to load or show anything yet.
	StateCreated State = iota

	// StateLoading: created hidden, waiting for an explicit show or
	// the show timeout.
	StateLoading

	StateShown
	StateHidden

	// StateClosing: a close was requested or began; the record stays
	// in the registry until the platform reports the window closed.
	StateClosing

	// StateClosed: the native window is gone and the record has left
	// the registry.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLoading:
		return "loading"
	case StateShown:
		return "shown"
	case StateHidden:
		return "hidden"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Record is one open window.
type Record struct {
	id        uint32
	name      string
	props     Props
	native    NativeWindow
	workspace string

	mu        sync.Mutex
	state     State
	result    any
	meta      Metadata
	showTimer *clock.Timer
	closed    chan struct{}
}

func newRecord(native NativeWindow, name string, props Props, meta Metadata, workspace string) *Record {
	state := StateLoading
	if props.IsShown() {
		state = StateShown
	}
	return &Record{
		id:        native.ID(),
		name:      name,
		props:     props,
		native:    native,
		workspace: workspace,
		state:     state,
		meta:      meta,
		closed:    make(chan struct{}),
	}
}

// ID returns the native window id.
func (r *Record) ID() uint32 { return r.id }

// Name returns the logical window name.
func (r *Record) Name() string { return r.name }

// Props returns the resolved props the window was created with.
func (r *Record) Props() Props { return r.props }

// Singleton reports whether the window is a singleton.
func (r *Record) Singleton() bool { return r.props.IsSingleton() }

// ParentID returns the parent window id, 0 for top-level windows.
func (r *Record) ParentID() uint32 { return r.props.ParentID }

// Workspace returns the workspace path an editor window was opened on.
func (r *Record) Workspace() string { return r.workspace }

// Native returns the platform window.
func (r *Record) Native() NativeWindow { return r.native }

// State returns the current lifecycle state.
func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the value last set with SetResult.
func (r *Record) Result() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// SetResult stores the value Close and CloseParent report.
func (r *Record) SetResult(result any) {
	r.mu.Lock()
	r.result = result
	r.mu.Unlock()
}

// Metadata returns a copy of the metadata the window was opened with.
func (r *Record) Metadata() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.meta)
}

// Closed is closed once the native window is gone.
func (r *Record) Closed() <-chan struct{} { return r.closed }

// WaitClosed waits for the window to close and returns its result.
func (r *Record) WaitClosed(ctx context.Context) (any, error) {
	select {
	case <-r.closed:
		return r.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// transition moves to state unless the record is already closing or
// closed; those are terminal for show/hide traffic.
func (r *Record) transition(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state >= StateClosing {
		return
	}
	r.state = state
}

func (r *Record) markClosing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state < StateClosing {
		r.state = StateClosing
	}
	r.showTimer.Stop()
}

// markClosed reports whether this call moved the record to Closed.
func (r *Record) markClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateClosed {
		return false
	}
	r.state = StateClosed
	r.showTimer.Stop()
	close(r.closed)
	return true
}

func (r *Record) setShowTimer(timer *clock.Timer) {
	r.mu.Lock()
	r.showTimer = timer
	r.mu.Unlock()
}

// The native helpers below check Destroyed before every call.

func (r *Record) show() {
	if r.native.Destroyed() {
		return
	}
	r.native.Show()
	r.transition(StateShown)
}

func (r *Record) hide() {
	if r.native.Destroyed() {
		return
	}
	r.native.Blur()
	r.native.Hide()
	r.transition(StateHidden)
}

func (r *Record) close() {
	if r.native.Destroyed() {
		return
	}
	if !r.native.Closable() {
		r.native.SetClosable(true)
	}
	r.markClosing()
	r.native.Close()
}

func (r *Record) minimize() {
	if !r.native.Destroyed() {
		r.native.Minimize()
	}
}

func (r *Record) restore() {
	if !r.native.Destroyed() && r.native.IsMinimized() {
		r.native.Restore()
	}
}

func (r *Record) reload() {
	if !r.native.Destroyed() {
		r.native.Reload()
	}
}

func (r *Record) resize(width, height int) {
	if r.native.Destroyed() {
		return
	}
	currentWidth, currentHeight := r.native.Size()
	if width <= 0 {
		width = currentWidth
	}
	if height <= 0 {
		height = currentHeight
	}
	r.native.SetSize(width, height)
}

// Summary is the wire form of a record.
type Summary struct {
	ID        uint32   `cbor:"id" json:"id"`
	Name      string   `cbor:"name" json:"name"`
	ParentID  uint32   `cbor:"parentId,omitempty" json:"parentId,omitempty"`
	State     string   `cbor:"state" json:"state"`
	Workspace string   `cbor:"workspace,omitempty" json:"workspace,omitempty"`
	Result    any      `cbor:"result,omitempty" json:"result,omitempty"`
	Metadata  Metadata `cbor:"meta,omitempty" json:"meta,omitempty"`
}

// Summary returns the record's wire form.
func (r *Record) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:        r.id,
		Name:      r.name,
		ParentID:  r.props.ParentID,
		State:     r.state.String(),
		Workspace: r.workspace,
		Result:    r.result,
		Metadata:  maps.Clone(r.meta),
	}
}
