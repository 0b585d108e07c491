// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/casement-foundation/casement/lib/codec"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// helloTimeout bounds how long a new connection may take to identify
// itself. A well-behaved host sends hello immediately after connecting.
const helloTimeout = 10 * time.Second

// Hub is the controller side of the bridge. It implements [Router].
type Hub struct {
	socketPath string
	logger     *slog.Logger
	table      *listenerTable
	listening  *lifecycle.Readiness

	mu      sync.RWMutex
	windows map[uint32]*Conn
	tools   map[*Conn]struct{}
	closed  bool
	attach  []*hookEntry
	detach  []*hookEntry

	// activeConnections tracks attached connections for graceful
	// shutdown. Serve waits for all of them to go away before
	// returning.
	activeConnections sync.WaitGroup
}

type hookEntry struct {
	fn func(Endpoint)
}

// NewHub creates a hub that will listen on socketPath once Serve is
// called. socketPath may be empty when connections are only attached
// through AttachConn.
func NewHub(socketPath string, logger *slog.Logger) *Hub {
	return &Hub{
		socketPath: socketPath,
		logger:     logger,
		table:      newListenerTable(),
		listening:  lifecycle.NewReadiness(),
		windows:    make(map[uint32]*Conn),
		tools:      make(map[*Conn]struct{}),
	}
}

// SocketPath returns the path Serve listens on.
func (h *Hub) SocketPath() string { return h.socketPath }

// Listening is closed once Serve accepts connections.
func (h *Hub) Listening() <-chan struct{} { return h.listening.Ready() }

// Serve accepts UI-host connections until ctx is cancelled, then closes
// every attached connection and waits for their goroutines to finish.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (h *Hub) Serve(ctx context.Context) error {
	if err := os.Remove(h.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", h.socketPath, err)
	}

	listener, err := net.Listen("unix", h.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(h.socketPath)
	}()
	if err := os.Chmod(h.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting socket %s: %w", h.socketPath, err)
	}

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	h.logger.Info("hub listening", "path", h.socketPath)
	h.listening.MarkReady()

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			h.logger.Error("accept failed", "error", err)
			continue
		}

		h.activeConnections.Add(1)
		go func() {
			defer h.activeConnections.Done()
			netConn.SetReadDeadline(time.Now().Add(helloTimeout))
			if _, err := h.AttachConn(netConn); err != nil {
				h.logger.Warn("rejecting connection", "error", err)
			}
		}()
	}

	h.Close()
	h.activeConnections.Wait()
	return nil
}

// AttachConn reads the hello frame from rwc and attaches it as the host
// of the window it names. A second connection for a window id that is
// already attached replaces the first. A read deadline set on rwc to
// bound the hello is cleared once the hello has been read.
func (h *Hub) AttachConn(rwc io.ReadWriteCloser) (*Conn, error) {
	dec := codec.NewDecoder(rwc)
	var hello Message
	if err := dec.Decode(&hello); err != nil {
		rwc.Close()
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	if hello.Channel != helloChannel {
		rwc.Close()
		return nil, fmt.Errorf("expected hello frame, got %q", hello.Channel)
	}
	var id uint32
	if err := hello.Arg(0, &id); err != nil {
		rwc.Close()
		return nil, err
	}
	if d, ok := rwc.(interface{ SetReadDeadline(time.Time) error }); ok {
		d.SetReadDeadline(time.Time{})
	}

	conn := newConn(rwc, dec, id, h.table, h.logger)
	conn.stampSender = true
	conn.relay = h.relay

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		rwc.Close()
		return nil, errors.New("hub closed")
	}
	var replaced *Conn
	if id == 0 {
		h.tools[conn] = struct{}{}
	} else {
		replaced = h.windows[id]
		h.windows[id] = conn
	}
	hooks := slices.Clone(h.attach)
	h.mu.Unlock()

	if replaced != nil {
		h.logger.Warn("window host reconnected, dropping previous connection", "window_id", id)
		replaced.destroy()
	}

	h.activeConnections.Add(1)
	conn.start()
	go h.watch(conn)

	h.logger.Debug("host attached", "window_id", id)
	for _, hook := range hooks {
		hook.fn(conn)
	}
	return conn, nil
}

func (h *Hub) watch(conn *Conn) {
	defer h.activeConnections.Done()
	<-conn.Done()

	h.mu.Lock()
	if conn.id == 0 {
		delete(h.tools, conn)
	} else if h.windows[conn.id] == conn {
		delete(h.windows, conn.id)
	}
	hooks := slices.Clone(h.detach)
	h.mu.Unlock()

	h.logger.Debug("host detached", "window_id", conn.id)
	for _, hook := range hooks {
		hook.fn(conn)
	}
}

func (h *Hub) relay(from *Conn, msg Message) {
	h.mu.RLock()
	target := h.windows[msg.Target]
	h.mu.RUnlock()
	if target == nil {
		h.logger.Debug("dropping relay to unattached window",
			"channel", msg.Channel,
			"from", from.id,
			"target", msg.Target,
		)
		return
	}
	forwarded := Message{Channel: msg.Channel, Args: msg.Args, Sender: from.id}
	if err := target.enqueue(forwarded); err != nil {
		h.logger.Debug("relay target gone", "channel", msg.Channel, "target", msg.Target)
	}
}

// On implements Router. The listener hears frames from every host.
func (h *Hub) On(channel string, listener Listener) lifecycle.Disposable {
	return h.table.add(channel, listener, false)
}

// Once implements Router.
func (h *Hub) Once(channel string, listener Listener) lifecycle.Disposable {
	return h.table.add(channel, listener, true)
}

// RemoveAll implements Router.
func (h *Hub) RemoveAll(channel string) { h.table.removeAll(channel) }

// ListenerCount implements Router.
func (h *Hub) ListenerCount(channel string) int { return h.table.count(channel) }

// Endpoint implements Router.
func (h *Hub) Endpoint(id uint32) (Endpoint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.windows[id]
	if !ok {
		return nil, false
	}
	return conn, true
}

// Endpoints implements Router.
func (h *Hub) Endpoints() []Endpoint {
	h.mu.RLock()
	ids := make([]uint32, 0, len(h.windows))
	for id := range h.windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	endpoints := make([]Endpoint, 0, len(ids))
	for _, id := range ids {
		endpoints = append(endpoints, h.windows[id])
	}
	h.mu.RUnlock()
	return endpoints
}

// Broadcast sends a frame to every attached window host. Hosts that go
// away mid-broadcast are skipped.
func (h *Hub) Broadcast(channel string, args ...any) error {
	raw, err := codec.MarshalArgs(args...)
	if err != nil {
		return fmt.Errorf("broadcasting on %s: %w", channel, err)
	}
	for _, endpoint := range h.Endpoints() {
		_ = endpoint.(*Conn).enqueue(Message{Channel: channel, Args: raw})
	}
	return nil
}

// OnAttach registers fn to run after a host completes its handshake.
func (h *Hub) OnAttach(fn func(Endpoint)) lifecycle.Disposable {
	return h.addHook(&h.attach, fn)
}

// OnDetach registers fn to run after a host's connection goes away.
func (h *Hub) OnDetach(fn func(Endpoint)) lifecycle.Disposable {
	return h.addHook(&h.detach, fn)
}

func (h *Hub) addHook(list *[]*hookEntry, fn func(Endpoint)) lifecycle.Disposable {
	entry := &hookEntry{fn: fn}
	h.mu.Lock()
	*list = append(*list, entry)
	h.mu.Unlock()
	return lifecycle.DisposeFunc(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		*list = slices.DeleteFunc(*list, func(e *hookEntry) bool { return e == entry })
	})
}

// Close destroys every attached connection and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.windows)+len(h.tools))
	for _, conn := range h.windows {
		conns = append(conns, conn)
	}
	for conn := range h.tools {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		conn.destroy()
	}
}
