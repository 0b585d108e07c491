// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package hostproc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/event"
	"github.com/casement-foundation/casement/lib/lifecycle"
	"github.com/casement-foundation/casement/lib/window"
)

// Identity is what a launched host learns from its environment.
type Identity struct {
	WindowID   uint32
	SocketPath string
	Name       string
	Metadata   window.Metadata
}

// IdentityFromEnv reads the CASEMENT_* variables set by ExecLauncher.
func IdentityFromEnv() (Identity, error) {
	rawID := os.Getenv(EnvWindowID)
	if rawID == "" {
		return Identity{}, fmt.Errorf("%s not set (casement-host is started by the controller)", EnvWindowID)
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil || id == 0 {
		return Identity{}, fmt.Errorf("invalid %s %q", EnvWindowID, rawID)
	}
	identity := Identity{
		WindowID:   uint32(id),
		SocketPath: os.Getenv(EnvSocket),
		Name:       os.Getenv(EnvWindowName),
	}
	if identity.SocketPath == "" {
		return Identity{}, fmt.Errorf("%s not set", EnvSocket)
	}
	if raw := os.Getenv(EnvMetadata); raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity.Metadata); err != nil {
			return Identity{}, fmt.Errorf("parsing %s: %w", EnvMetadata, err)
		}
	}
	return identity, nil
}

// Host is the UI-host side of one window: it applies control frames to
// a headless window state and reports every change to the controller.
type Host struct {
	conn    *channel.Conn
	bus     *event.HostBus
	windows *window.Client
	logger  *slog.Logger

	subscriptions lifecycle.Group
	initialized   chan struct{}
	done          chan struct{}
	doneOnce      sync.Once

	mu    sync.Mutex
	frame InitFrame
	state StateReport
}

// Connect dials the hub at socketPath as the host of window id.
func Connect(ctx context.Context, socketPath string, id uint32, logger *slog.Logger) (*Host, error) {
	conn, err := channel.Dial(ctx, socketPath, id, logger)
	if err != nil {
		return nil, err
	}
	return NewHost(conn, logger), nil
}

// NewHost serves window control on an attached connection.
func NewHost(conn *channel.Conn, logger *slog.Logger) *Host {
	h := &Host{
		conn:        conn,
		bus:         event.NewHostBus(conn, clock.Real(), 0, logger),
		windows:     window.NewClient(conn),
		logger:      logger,
		initialized: make(chan struct{}),
		done:        make(chan struct{}),
	}
	h.subscriptions.Add(conn.Once(ChannelInit, h.onInit))
	h.subscriptions.Add(conn.On(ChannelControl, h.onControl))
	go func() {
		<-conn.Done()
		h.finish()
	}()
	return h
}

// ID returns the window id this host serves.
func (h *Host) ID() uint32 { return h.conn.ID() }

// Conn returns the host's channel connection.
func (h *Host) Conn() *channel.Conn { return h.conn }

// Bus returns the host's event bus.
func (h *Host) Bus() *event.HostBus { return h.bus }

// Windows returns a client for the controller's window service.
func (h *Host) Windows() *window.Client { return h.windows }

// Init waits for the controller's init frame.
func (h *Host) Init(ctx context.Context) (InitFrame, error) {
	select {
	case <-h.initialized:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.frame, nil
	case <-h.done:
		return InitFrame{}, channel.ErrDestroyed
	case <-ctx.Done():
		return InitFrame{}, ctx.Err()
	}
}

// State returns the current window state.
func (h *Host) State() StateReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetFocused records a focus change made by the user.
func (h *Host) SetFocused(focused bool) {
	h.update(func(state *StateReport) { state.Focused = focused })
}

// RequestClose asks the controller to close this window, as the user
// clicking the close button would.
func (h *Host) RequestClose() error {
	return h.conn.Send(ChannelCloseRequest)
}

// Done is closed once the host stops serving.
func (h *Host) Done() <-chan struct{} { return h.done }

// Close stops serving and disconnects.
func (h *Host) Close() error {
	h.finish()
	return h.conn.Close()
}

func (h *Host) finish() {
	h.doneOnce.Do(func() {
		h.subscriptions.Dispose()
		h.bus.Close()
		h.windows.Proxy().Close()
		close(h.done)
	})
}

func (h *Host) onInit(_ channel.Endpoint, msg channel.Message) {
	var frame InitFrame
	if err := msg.Arg(0, &frame); err != nil {
		h.logger.Error("malformed init frame", "error", err)
		return
	}
	h.mu.Lock()
	h.frame = frame
	h.mu.Unlock()
	close(h.initialized)

	h.logger.Info("window host initialized", "window_id", h.ID(), "name", frame.Name)
	shown := frame.Props.IsShown()
	h.update(func(state *StateReport) {
		state.Visible = shown
		state.Focused = shown
		state.Closable = frame.Props.IsClosable()
		state.Width = frame.Props.Width
		state.Height = frame.Props.Height
	})
}

func (h *Host) onControl(_ channel.Endpoint, msg channel.Message) {
	var op string
	var args ControlArgs
	if err := msg.Arg(0, &op); err != nil {
		h.logger.Warn("malformed control frame", "error", err)
		return
	}
	if err := msg.Arg(1, &args); err != nil {
		h.logger.Warn("malformed control arguments", "op", op, "error", err)
		return
	}

	switch op {
	case OpShow:
		h.update(func(state *StateReport) {
			state.Visible, state.Minimized, state.Focused = true, false, true
		})
	case OpHide:
		h.update(func(state *StateReport) { state.Visible, state.Focused = false, false })
	case OpBlur:
		h.update(func(state *StateReport) { state.Focused = false })
	case OpMinimize:
		h.update(func(state *StateReport) { state.Minimized, state.Focused = true, false })
	case OpRestore:
		h.update(func(state *StateReport) { state.Minimized = false })
	case OpReload:
		h.update(func(state *StateReport) { state.Reloads++ })
	case OpSetClosable:
		h.update(func(state *StateReport) { state.Closable = args.Closable })
	case OpSetSize:
		h.update(func(state *StateReport) { state.Width, state.Height = args.Width, args.Height })
	case OpClose:
		h.logger.Info("window host closing", "window_id", h.ID())
		h.Close()
	default:
		h.logger.Warn("unknown control op", "op", op)
	}
}

func (h *Host) update(change func(*StateReport)) {
	h.mu.Lock()
	change(&h.state)
	report := h.state
	h.mu.Unlock()
	if err := h.conn.Send(ChannelState, report); err != nil {
		h.logger.Debug("state report dropped", "window_id", h.ID(), "error", err)
	}
}
