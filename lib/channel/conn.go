// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/casement-foundation/casement/lib/codec"
	"github.com/casement-foundation/casement/lib/lifecycle"
	"github.com/casement-foundation/casement/lib/netutil"
)

// Conn is one framed connection. Outbound frames go through an
// unbounded queue drained by a single writer goroutine, so Send never
// blocks on the peer and two peers that both send from inside a
// listener cannot deadlock each other. Inbound frames are dispatched on
// the read goroutine in arrival order.
type Conn struct {
	id     uint32
	rwc    io.ReadWriteCloser
	dec    *codec.Decoder
	table  *listenerTable
	logger *slog.Logger

	// stampSender is set on controller-side connections: the hub
	// overwrites Sender with the id the host authenticated as.
	stampSender bool

	// relay receives frames that carry a Target. Nil on host-side
	// connections, where Target is never set on inbound frames.
	relay func(from *Conn, msg Message)

	mu      sync.Mutex
	queue   []Message
	closing bool
	wake    chan struct{}

	writerDone chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func newConn(rwc io.ReadWriteCloser, dec *codec.Decoder, id uint32, table *listenerTable, logger *slog.Logger) *Conn {
	if dec == nil {
		dec = codec.NewDecoder(rwc)
	}
	return &Conn{
		id:         id,
		rwc:        rwc,
		dec:        dec,
		table:      table,
		logger:     logger.With("window_id", id),
		wake:       make(chan struct{}, 1),
		writerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (c *Conn) start() {
	go c.writeLoop()
	go c.readLoop()
}

// NewHostConn performs the hello handshake for window id on rwc and
// returns the UI-host side of the connection.
func NewHostConn(rwc io.ReadWriteCloser, id uint32, logger *slog.Logger) (*Conn, error) {
	args, err := codec.MarshalArgs(id)
	if err != nil {
		return nil, err
	}
	if err := codec.NewEncoder(rwc).Encode(Message{Channel: helloChannel, Args: args}); err != nil {
		rwc.Close()
		return nil, fmt.Errorf("sending hello for window %d: %w", id, err)
	}
	conn := newConn(rwc, nil, id, newListenerTable(), logger)
	conn.start()
	return conn, nil
}

// ID implements Endpoint.
func (c *Conn) ID() uint32 { return c.id }

// Send implements Endpoint.
func (c *Conn) Send(channel string, args ...any) error {
	return c.SendTo(0, channel, args...)
}

// SendTo implements Endpoint.
func (c *Conn) SendTo(target uint32, channel string, args ...any) error {
	raw, err := codec.MarshalArgs(args...)
	if err != nil {
		return fmt.Errorf("sending on %s: %w", channel, err)
	}
	return c.enqueue(Message{Channel: channel, Args: raw, Target: target})
}

func (c *Conn) enqueue(msg Message) error {
	c.mu.Lock()
	if c.closing || c.Destroyed() {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()
	c.signal()
	return nil
}

func (c *Conn) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// On implements Endpoint.
func (c *Conn) On(channel string, listener Listener) lifecycle.Disposable {
	return c.table.add(channel, listener, false)
}

// Once implements Endpoint.
func (c *Conn) Once(channel string, listener Listener) lifecycle.Disposable {
	return c.table.add(channel, listener, true)
}

// RemoveAll implements Endpoint.
func (c *Conn) RemoveAll(channel string) { c.table.removeAll(channel) }

// ListenerCount implements Endpoint.
func (c *Conn) ListenerCount(channel string) int { return c.table.count(channel) }

// Destroyed implements Endpoint.
func (c *Conn) Destroyed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done implements Endpoint.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close stops accepting new frames, waits for the writer to flush what
// is already queued, and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.signal()
	select {
	case <-c.writerDone:
	case <-c.done:
	}
	c.destroy()
	return nil
}

func (c *Conn) destroy() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.rwc.Close()
	})
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)
	enc := codec.NewEncoder(c.rwc)
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		closing := c.closing
		c.mu.Unlock()

		for _, msg := range batch {
			if err := enc.Encode(msg); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					c.logger.Error("frame write failed", "channel", msg.Channel, "error", err)
				}
				c.destroy()
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closing {
			return
		}
		select {
		case <-c.wake:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer c.destroy()
	for {
		var msg Message
		if err := c.dec.Decode(&msg); err != nil {
			if !netutil.IsExpectedCloseError(err) && !c.Destroyed() {
				c.logger.Error("frame read failed", "error", err)
			}
			return
		}
		if c.stampSender {
			msg.Sender = c.id
		}
		if msg.Target != 0 && c.relay != nil {
			c.relay(c, msg)
			continue
		}
		if c.table.dispatch(c, msg) == 0 {
			c.logger.Debug("frame without listener", "channel", msg.Channel)
		}
	}
}
