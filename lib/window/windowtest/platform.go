// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package windowtest provides an in-memory window.Platform for tests.
//
// Windows close asynchronously, as real platforms do: Close fires the
// closing callbacks at once and the closed callbacks on a separate
// goroutine. HoldCloses keeps windows in the closing phase until
// Release is called, which lets tests observe the Closing state.
package windowtest

import (
	"context"
	"errors"
	"sync"

	"github.com/casement-foundation/casement/lib/window"
)

// Platform is an in-memory window.Platform.
type Platform struct {
	mu         sync.Mutex
	ready      chan struct{}
	readyOnce  sync.Once
	nextID     uint32
	windows    map[uint32]*Window
	created    []window.CreateOptions
	focused    uint32
	holdCloses bool
	createHook func(window.CreateOptions)
	createErr  error
}

// NewPlatform returns a platform; ready selects whether it starts ready.
func NewPlatform(ready bool) *Platform {
	p := &Platform{
		ready:   make(chan struct{}),
		windows: make(map[uint32]*Window),
	}
	if ready {
		p.MarkReady()
	}
	return p
}

// MarkReady lets pending and future Create calls proceed.
func (p *Platform) MarkReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

// Ready implements window.Platform.
func (p *Platform) Ready() <-chan struct{} { return p.ready }

// OnCreate runs hook inside every Create before the window exists.
// Blocking in hook holds the Create call open.
func (p *Platform) OnCreate(hook func(window.CreateOptions)) {
	p.mu.Lock()
	p.createHook = hook
	p.mu.Unlock()
}

// FailCreates makes every Create return err; nil restores success.
func (p *Platform) FailCreates(err error) {
	p.mu.Lock()
	p.createErr = err
	p.mu.Unlock()
}

// Create implements window.Platform.
func (p *Platform) Create(ctx context.Context, options window.CreateOptions) (window.NativeWindow, error) {
	p.mu.Lock()
	hook, createErr := p.createHook, p.createErr
	p.mu.Unlock()
	if hook != nil {
		hook(options)
	}
	if createErr != nil {
		return nil, createErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	w := &Window{
		platform: p,
		id:       p.nextID,
		options:  options,
		visible:  options.Props.IsShown(),
		closable: options.Props.IsClosable(),
		width:    options.Props.Width,
		height:   options.Props.Height,
		closed:   make(chan struct{}),
	}
	p.windows[w.id] = w
	p.created = append(p.created, options)
	if w.visible {
		p.focused = w.id
	}
	return w, nil
}

// Focused implements window.Platform.
func (p *Platform) Focused() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.focused == 0 {
		return 0, false
	}
	return p.focused, true
}

// Focus makes id the focused window; 0 clears focus.
func (p *Platform) Focus(id uint32) {
	p.mu.Lock()
	p.focused = id
	p.mu.Unlock()
}

// Window returns the native window with id.
func (p *Platform) Window(id uint32) *Window {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windows[id]
}

// Created returns the options of every Create call that succeeded.
func (p *Platform) Created() []window.CreateOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]window.CreateOptions(nil), p.created...)
}

// HoldCloses keeps closing windows from finishing until Release.
func (p *Platform) HoldCloses(hold bool) {
	p.mu.Lock()
	p.holdCloses = hold
	p.mu.Unlock()
}

// Window is an in-memory native window.
type Window struct {
	platform *Platform
	id       uint32
	options  window.CreateOptions

	mu        sync.Mutex
	visible   bool
	minimized bool
	closable  bool
	closing   bool
	destroyed bool
	reloads   int
	width     int
	height    int
	onClosing []func()
	onClosed  []func()
	closed    chan struct{}
}

// ErrCreateFailed is a convenience error for FailCreates.
var ErrCreateFailed = errors.New("windowtest: create failed")

func (w *Window) ID() uint32 { return w.id }

// Options returns the options the window was created with.
func (w *Window) Options() window.CreateOptions { return w.options }

func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

func (w *Window) Show() {
	w.mu.Lock()
	w.visible = true
	w.minimized = false
	w.mu.Unlock()
	w.platform.Focus(w.id)
}

func (w *Window) Hide() {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
}

func (w *Window) Blur() {
	w.platform.mu.Lock()
	if w.platform.focused == w.id {
		w.platform.focused = 0
	}
	w.platform.mu.Unlock()
}

func (w *Window) Minimize() {
	w.mu.Lock()
	w.minimized = true
	w.mu.Unlock()
}

func (w *Window) Restore() {
	w.mu.Lock()
	w.minimized = false
	w.mu.Unlock()
}

func (w *Window) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}

func (w *Window) Reload() {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
}

// Reloads returns how many times Reload was called.
func (w *Window) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Visible reports whether the window is shown.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *Window) Closable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closable
}

func (w *Window) SetClosable(closable bool) {
	w.mu.Lock()
	w.closable = closable
	w.mu.Unlock()
}

func (w *Window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *Window) SetSize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
}

func (w *Window) OnClosing(fn func()) {
	w.mu.Lock()
	w.onClosing = append(w.onClosing, fn)
	w.mu.Unlock()
}

func (w *Window) OnClosed(fn func()) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		fn()
		return
	}
	w.onClosed = append(w.onClosed, fn)
	w.mu.Unlock()
}

// Close starts closing the window. A window that is not closable
// ignores the request, as a native window would.
func (w *Window) Close() {
	w.mu.Lock()
	if !w.closable || w.closing || w.destroyed {
		w.mu.Unlock()
		return
	}
	w.closing = true
	closing := w.onClosing
	w.mu.Unlock()

	for _, fn := range closing {
		fn()
	}

	w.platform.mu.Lock()
	hold := w.platform.holdCloses
	w.platform.mu.Unlock()
	if !hold {
		go w.finishClose()
	}
}

// Release finishes a close that HoldCloses kept pending.
func (w *Window) Release() {
	w.mu.Lock()
	closing := w.closing
	w.mu.Unlock()
	if closing {
		w.finishClose()
	}
}

// Destroy simulates the user closing the window from outside the
// application.
func (w *Window) Destroy() {
	w.mu.Lock()
	w.closable = true
	w.mu.Unlock()
	w.Close()
}

// Done is closed once the window is destroyed.
func (w *Window) Done() <-chan struct{} { return w.closed }

func (w *Window) finishClose() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.visible = false
	callbacks := w.onClosed
	w.onClosed = nil
	close(w.closed)
	w.mu.Unlock()

	w.platform.mu.Lock()
	if w.platform.focused == w.id {
		w.platform.focused = 0
	}
	w.platform.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
