// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package hostproc

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/clock"
)

// Window is the controller's handle on one host process. Local state
// is updated optimistically by each control call and overwritten by
// the host's next state report.
type Window struct {
	platform *Platform
	id       uint32
	name     string
	process  Process
	endpoint channel.Endpoint

	mu        sync.Mutex
	visible   bool
	minimized bool
	closable  bool
	closing   bool
	destroyed bool
	width     int
	height    int
	onClosing []func()
	onClosed  []func()
	escalate  *clock.Timer
	exited    chan struct{}
}

func (w *Window) ID() uint32 { return w.id }

// Pid returns the host's process id.
func (w *Window) Pid() int { return w.process.Pid() }

func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

func (w *Window) closingOrDestroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closing || w.destroyed
}

func (w *Window) control(op string, args ControlArgs) {
	if err := w.endpoint.Send(ChannelControl, op, args); err != nil {
		w.platform.logger.Debug("control frame dropped", "window_id", w.id, "op", op, "error", err)
	}
}

func (w *Window) Show() {
	w.mu.Lock()
	w.visible, w.minimized = true, false
	w.mu.Unlock()
	w.control(OpShow, ControlArgs{})
}

func (w *Window) Hide() {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
	w.control(OpHide, ControlArgs{})
}

// Visible reports whether the window was last seen shown.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *Window) Blur() { w.control(OpBlur, ControlArgs{}) }

func (w *Window) Minimize() {
	w.mu.Lock()
	w.minimized = true
	w.mu.Unlock()
	w.control(OpMinimize, ControlArgs{})
}

func (w *Window) Restore() {
	w.mu.Lock()
	w.minimized = false
	w.mu.Unlock()
	w.control(OpRestore, ControlArgs{})
}

func (w *Window) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}

func (w *Window) Reload() { w.control(OpReload, ControlArgs{}) }

func (w *Window) Closable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closable
}

func (w *Window) SetClosable(closable bool) {
	w.mu.Lock()
	w.closable = closable
	w.mu.Unlock()
	w.control(OpSetClosable, ControlArgs{Closable: closable})
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
	w.control(OpSetSize, ControlArgs{Width: width, Height: height})
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

// Close asks the host to exit. A host that is still running after the
// close grace period is terminated. Non-closable windows ignore Close.
func (w *Window) Close() {
	w.mu.Lock()
	if !w.closable || w.closing || w.destroyed {
		w.mu.Unlock()
		return
	}
	w.closing = true
	callbacks := w.onClosing
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	w.control(OpClose, ControlArgs{})
	w.scheduleEscalation(unix.SIGTERM)
}

func (w *Window) scheduleEscalation(sig unix.Signal) {
	timer := w.platform.clock.AfterFunc(w.platform.closeGrace, func() {
		if w.Destroyed() {
			return
		}
		w.platform.logger.Warn("window host did not exit, signalling",
			"window_id", w.id,
			"pid", w.process.Pid(),
			"signal", sig.String(),
		)
		if err := w.process.Signal(sig); err != nil {
			w.platform.logger.Debug("signalling host failed", "window_id", w.id, "error", err)
		}
		if sig == unix.SIGTERM {
			w.scheduleEscalation(unix.SIGKILL)
		}
	})
	w.mu.Lock()
	if w.destroyed {
		timer.Stop()
	} else {
		w.escalate = timer
	}
	w.mu.Unlock()
}

// terminate sends SIGTERM now and SIGKILL after the grace period.
func (w *Window) terminate() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
	if err := w.process.Signal(unix.SIGTERM); err != nil {
		w.platform.logger.Debug("signalling host failed", "window_id", w.id, "error", err)
	}
	w.scheduleEscalation(unix.SIGKILL)
}

func (w *Window) kill() {
	if err := w.process.Signal(unix.SIGKILL); err != nil {
		w.platform.logger.Debug("killing host failed", "window_id", w.id, "error", err)
	}
}

func (w *Window) apply(report StateReport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = report.Visible
	w.minimized = report.Minimized
	if report.Width > 0 {
		w.width = report.Width
	}
	if report.Height > 0 {
		w.height = report.Height
	}
}

// reap waits for the host to exit and runs the closed callbacks.
func (w *Window) reap() {
	err := w.process.Wait()

	w.mu.Lock()
	w.destroyed = true
	w.escalate.Stop()
	callbacks := w.onClosed
	w.onClosed = nil
	close(w.exited)
	w.mu.Unlock()

	w.platform.exited(w)
	w.platform.logger.Info("window host exited", "window_id", w.id, "name", w.name, "error", err)
	for _, fn := range callbacks {
		fn()
	}
}
