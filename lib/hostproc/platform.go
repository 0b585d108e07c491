// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package hostproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/lifecycle"
	"github.com/casement-foundation/casement/lib/window"
)

const (
	// DefaultAttachTimeout bounds how long a launched host has to
	// connect and say hello.
	DefaultAttachTimeout = 10 * time.Second

	// DefaultCloseGrace is how long a closing host has to exit before
	// it is sent SIGTERM, and again before SIGKILL.
	DefaultCloseGrace = 5 * time.Second
)

// ErrHostExited is returned by Create when the host exits before
// attaching.
var ErrHostExited = errors.New("host exited before attaching")

// Config configures a Platform.
type Config struct {
	Hub      *channel.Hub
	Launcher Launcher

	// AttachTimeout defaults to DefaultAttachTimeout.
	AttachTimeout time.Duration

	// CloseGrace defaults to DefaultCloseGrace.
	CloseGrace time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Platform implements window.Platform with one host process per window.
type Platform struct {
	hub           *channel.Hub
	launcher      Launcher
	attachTimeout time.Duration
	closeGrace    time.Duration
	clock         clock.Clock
	logger        *slog.Logger

	ready         *lifecycle.Readiness
	nextID        atomic.Uint32
	subscriptions lifecycle.Group

	mu      sync.Mutex
	windows map[uint32]*Window
	waiters map[uint32]chan channel.Endpoint
	focused uint32
}

// New returns a platform that is not yet ready; call MarkReady once
// the hub is serving.
func New(config Config) *Platform {
	if config.AttachTimeout <= 0 {
		config.AttachTimeout = DefaultAttachTimeout
	}
	if config.CloseGrace <= 0 {
		config.CloseGrace = DefaultCloseGrace
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	p := &Platform{
		hub:           config.Hub,
		launcher:      config.Launcher,
		attachTimeout: config.AttachTimeout,
		closeGrace:    config.CloseGrace,
		clock:         config.Clock,
		logger:        config.Logger,
		ready:         lifecycle.NewReadiness(),
		windows:       make(map[uint32]*Window),
		waiters:       make(map[uint32]chan channel.Endpoint),
	}
	p.subscriptions.Add(config.Hub.OnAttach(p.attached))
	p.subscriptions.Add(config.Hub.OnDetach(p.detached))
	p.subscriptions.Add(config.Hub.On(ChannelState, p.onState))
	p.subscriptions.Add(config.Hub.On(ChannelCloseRequest, p.onCloseRequest))
	return p
}

// MarkReady lets Create calls proceed.
func (p *Platform) MarkReady() { p.ready.MarkReady() }

func (p *Platform) Ready() <-chan struct{} { return p.ready.Ready() }

// Create launches a host for a new window and waits for it to attach.
func (p *Platform) Create(ctx context.Context, options window.CreateOptions) (window.NativeWindow, error) {
	id := p.nextID.Add(1)
	attached := make(chan channel.Endpoint, 1)
	p.mu.Lock()
	p.waiters[id] = attached
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.waiters, id)
		p.mu.Unlock()
	}()

	process, err := p.launcher.Launch(ctx, LaunchSpec{
		WindowID:   id,
		SocketPath: p.hub.SocketPath(),
		Name:       options.Name,
		Metadata:   options.Metadata,
	})
	if err != nil {
		return nil, err
	}

	w := &Window{
		platform: p,
		id:       id,
		name:     options.Name,
		process:  process,
		closable: options.Props.IsClosable(),
		visible:  options.Props.IsShown(),
		width:    options.Props.Width,
		height:   options.Props.Height,
		exited:   make(chan struct{}),
	}
	go w.reap()

	timeout := p.clock.After(p.attachTimeout)
	select {
	case endpoint := <-attached:
		w.endpoint = endpoint
	case <-w.exited:
		return nil, fmt.Errorf("window %d (%s): %w", id, options.Name, ErrHostExited)
	case <-timeout:
		w.kill()
		return nil, fmt.Errorf("window %d (%s): host did not attach within %s", id, options.Name, p.attachTimeout)
	case <-ctx.Done():
		w.kill()
		return nil, ctx.Err()
	}

	p.mu.Lock()
	p.windows[id] = w
	p.mu.Unlock()

	frame := InitFrame{
		Name:         options.Name,
		Props:        options.Props,
		Capabilities: options.Capabilities,
		Metadata:     options.Metadata,
		Overrides:    options.Overrides,
	}
	if err := w.endpoint.Send(ChannelInit, frame); err != nil {
		w.kill()
		return nil, fmt.Errorf("initializing window %d: %w", id, err)
	}

	p.logger.Info("window host started", "window_id", id, "name", options.Name, "pid", process.Pid())
	return w, nil
}

// Focused returns the window whose host last reported focus.
func (p *Platform) Focused() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused, p.focused != 0
}

// Close stops listening to the hub and kills every remaining host.
func (p *Platform) Close() {
	p.subscriptions.Dispose()
	p.mu.Lock()
	windows := make([]*Window, 0, len(p.windows))
	for _, w := range p.windows {
		windows = append(windows, w)
	}
	p.mu.Unlock()
	for _, w := range windows {
		w.kill()
	}
}

func (p *Platform) window(id uint32) *Window {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windows[id]
}

func (p *Platform) attached(endpoint channel.Endpoint) {
	p.mu.Lock()
	waiter := p.waiters[endpoint.ID()]
	p.mu.Unlock()
	if waiter != nil {
		select {
		case waiter <- endpoint:
		default:
		}
	}
}

// detached terminates a host whose connection dropped while its window
// was live. Hosts that are already closing exit on their own.
func (p *Platform) detached(endpoint channel.Endpoint) {
	w := p.window(endpoint.ID())
	if w == nil || w.endpoint != endpoint || w.closingOrDestroyed() {
		return
	}
	p.logger.Warn("window host disconnected, terminating", "window_id", w.id)
	w.terminate()
}

func (p *Platform) onState(source channel.Endpoint, msg channel.Message) {
	w := p.window(source.ID())
	if w == nil {
		return
	}
	var report StateReport
	if err := msg.Arg(0, &report); err != nil {
		p.logger.Warn("malformed host state report", "window_id", w.id, "error", err)
		return
	}
	w.apply(report)

	p.mu.Lock()
	if report.Focused {
		p.focused = w.id
	} else if p.focused == w.id {
		p.focused = 0
	}
	p.mu.Unlock()
}

func (p *Platform) onCloseRequest(source channel.Endpoint, _ channel.Message) {
	w := p.window(source.ID())
	if w == nil {
		return
	}
	if !w.Closable() {
		p.logger.Debug("ignoring close request for non-closable window", "window_id", w.id)
		return
	}
	w.Close()
}

func (p *Platform) exited(w *Window) {
	p.mu.Lock()
	if p.windows[w.id] == w {
		delete(p.windows, w.id)
	}
	if p.focused == w.id {
		p.focused = 0
	}
	p.mu.Unlock()
}
