// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/event"
	"github.com/casement-foundation/casement/lib/instance"
	"github.com/casement-foundation/casement/lib/lifecycle"
	"github.com/casement-foundation/casement/lib/meta"
	"github.com/casement-foundation/casement/lib/recent"
	"github.com/casement-foundation/casement/lib/rpc"
	"github.com/casement-foundation/casement/lib/storage"
	"github.com/casement-foundation/casement/lib/window"
)

// Windows that never count as the window to bring back on start.
const (
	NameMenubar   = "menubar"
	NameQuickpick = "quickpick"
)

// Platform is a window platform the app can mark ready once the hub
// is serving.
type Platform interface {
	window.Platform
	MarkReady()
}

// Config configures an App.
type Config struct {
	Hub      *channel.Hub
	Platform Platform
	Storage  *storage.Service

	// Presets defaults to window.DefaultPresets.
	Presets window.Presets

	Clock        clock.Clock
	ReplyTimeout time.Duration
	RecentLimit  int
	UserHome     string

	// Session identifies this controller run. A random one is
	// generated when zero.
	Session uuid.UUID

	// Lock, when set, is released by Stop.
	Lock *instance.Lock

	Logger *slog.Logger
}

// App is the running controller.
type App struct {
	hub      *channel.Hub
	platform Platform
	storage  *storage.Service
	lock     *instance.Lock
	logger   *slog.Logger

	registry *rpc.Registry
	bus      *event.Bus
	windows  *window.Service
	recent   *recent.Service
	meta     *meta.Service

	ready         *lifecycle.Readiness
	started       atomic.Bool
	subscriptions lifecycle.Group

	// ctx is the parent of work started outside an RPC call, such as
	// forwarded invocations. Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	quit     chan struct{}
	quitOnce sync.Once
	stopOnce sync.Once
}

// New wires the controller services onto config.Hub.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Session == uuid.Nil {
		config.Session = uuid.New()
	}
	logger := config.Logger
	logger.Info("new session", "session_id", config.Session.String())

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		hub:      config.Hub,
		platform: config.Platform,
		storage:  config.Storage,
		lock:     config.Lock,
		logger:   logger,
		ready:    lifecycle.NewReadiness(),
		ctx:      ctx,
		cancel:   cancel,
		quit:     make(chan struct{}),
	}

	windowRegistry := window.NewRegistry()
	a.registry = rpc.NewRegistry(config.Hub, logger.With("component", "rpc"))
	a.bus = event.NewBus(event.Config{
		Router:       config.Hub,
		Resolver:     window.NewResolver(windowRegistry, config.Platform),
		Clock:        config.Clock,
		ReplyTimeout: config.ReplyTimeout,
		Logger:       logger.With("component", "event"),
	})
	a.recent = recent.New(config.Storage, config.RecentLimit, logger.With("component", "recent"))
	a.windows = window.NewService(window.Config{
		Platform: config.Platform,
		Registry: windowRegistry,
		Events:   a.bus,
		Presets:  config.Presets,
		Clock:    config.Clock,
		UserHome: config.UserHome,
		Recent:   a.recent,
		Logger:   logger.With("component", "window"),
	})
	a.meta = meta.New(config.Session, logger.With("component", "meta"))
	a.meta.SetRPCListenPath(config.Hub.SocketPath())

	a.registry.Register(window.ServiceName, a.windows)
	a.registry.Register(storage.ServiceName, config.Storage)
	a.registry.Register(recent.ServiceName, a.recent)
	a.registry.Register(meta.ServiceName, a.meta)
	a.registry.Register(ServiceName, a)

	a.subscriptions.Add(config.Storage.OnChange(func(change storage.Change) {
		if err := a.registry.Emit(storage.ServiceName, storage.EventChange, change); err != nil {
			logger.Debug("storage change not delivered", "path", change.Path, "error", err)
		}
	}))
	a.subscriptions.Add(instance.OnSecondInstance(config.Hub, logger, func(inv instance.Invocation) {
		go func() {
			if err := a.SecondInstance(a.ctx, inv); err != nil {
				logger.Error("handling second instance failed", "error", err)
			}
		}()
	}))
	return a
}

// Windows returns the window coordinator.
func (a *App) Windows() *window.Service { return a.windows }

// Bus returns the controller event bus.
func (a *App) Bus() *event.Bus { return a.bus }

// Registry returns the RPC service registry.
func (a *App) Registry() *rpc.Registry { return a.registry }

// Recent returns the recent-workspace service.
func (a *App) Recent() *recent.Service { return a.recent }

// Meta returns the meta service.
func (a *App) Meta() *meta.Service { return a.meta }

// Enqueue records a launch invocation's workspace and goto location
// for the next Start.
func (a *App) Enqueue(inv instance.Invocation) {
	if inv.Workspace != "" {
		a.windows.AddWorkspace(inv.Workspace)
	}
	if inv.Goto != "" {
		a.windows.AddGoto(inv.Goto)
	}
}

// MakeReady marks the platform and every service ready. Call it once
// the hub is listening.
func (a *App) MakeReady() {
	a.platform.MarkReady()
	a.meta.MarkReady()
	a.ready.MarkReady()
	a.logger.Info("controller ready", "socket", a.hub.SocketPath())
}

// Ready is closed once MakeReady has run.
func (a *App) Ready() <-chan struct{} { return a.ready.Ready() }

// Start waits for readiness and brings up the first window. Queued
// workspaces each open an editor; otherwise queued goto locations open
// one; otherwise the recently focused window is restored; otherwise
// the dashboard opens. With mainEntry set, only the first call does
// anything.
func (a *App) Start(ctx context.Context, mainEntry bool) error {
	if mainEntry && !a.started.CompareAndSwap(false, true) {
		a.logger.Debug("ignoring repeated main start")
		return nil
	}
	if err := a.ready.Wait(ctx); err != nil {
		return err
	}

	if workspaces := a.windows.DrainWorkspaces(); len(workspaces) > 0 {
		for _, workspace := range workspaces {
			if _, err := a.windows.OpenEditor(ctx, workspace, window.EditorOptions{}); err != nil {
				return err
			}
		}
		return nil
	}
	if a.windows.QueuedGotos() > 0 {
		_, err := a.windows.OpenEditor(ctx, "", window.EditorOptions{})
		return err
	}
	if focused := a.restorable(); focused != nil {
		a.windows.Focus(focused.ID())
		return nil
	}
	_, err := a.windows.OpenDashboard(ctx, nil)
	return err
}

func (a *App) restorable() *window.Record {
	focused := a.windows.RecentlyFocused()
	if focused == nil {
		return nil
	}
	switch focused.Name() {
	case NameMenubar, NameQuickpick:
		return nil
	}
	return focused
}

// SecondInstance handles an invocation forwarded by a later process.
// A workspace or goto location is queued and started; a bare
// invocation brings back the focused window, or starts when there is
// none.
func (a *App) SecondInstance(ctx context.Context, inv instance.Invocation) error {
	a.logger.Info("second instance",
		"workspace", inv.Workspace,
		"goto", inv.Goto,
		"cwd", inv.Cwd,
	)
	if !inv.Empty() {
		a.Enqueue(inv)
		return a.Start(ctx, false)
	}
	if focused := a.restorable(); focused != nil {
		a.windows.Focus(focused.ID())
		return nil
	}
	return a.Start(ctx, false)
}

// OpenPath opens path in an editor. Before the app is ready the path
// is queued for Start.
func (a *App) OpenPath(ctx context.Context, path string) error {
	if !a.ready.IsReady() {
		a.windows.AddWorkspace(path)
		return nil
	}
	_, err := a.windows.OpenEditor(ctx, path, window.EditorOptions{})
	return err
}

// Quit asks the controller to shut down. Done is closed.
func (a *App) Quit() {
	a.quitOnce.Do(func() {
		a.logger.Info("quit requested")
		close(a.quit)
	})
}

// Done is closed when Quit is called.
func (a *App) Done() <-chan struct{} { return a.quit }

// Stop disposes every service, closes the hub, and releases the lock.
// It is safe to call more than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.subscriptions.Dispose()
		a.registry.Close()
		a.bus.Close()
		if closer, ok := a.platform.(interface{ Close() }); ok {
			closer.Close()
		}
		a.hub.Close()
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("closing storage failed", "error", err)
		}
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("releasing instance lock failed", "error", err)
		}
		a.logger.Info("controller stopped")
	})
}
