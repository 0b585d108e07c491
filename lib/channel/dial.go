// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
)

// Dial connects to the hub listening on socketPath as the host of
// window id. Pass id 0 for tool connections that serve no window.
func Dial(ctx context.Context, socketPath string, id uint32, logger *slog.Logger) (*Conn, error) {
	var dialer net.Dialer
	netConn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	return NewHostConn(netConn, id, logger)
}

// Pipe attaches an in-memory host connection for window id to hub and
// returns the host side. It is the socket-free path used by tests and
// by in-process hosts.
func Pipe(hub *Hub, id uint32, logger *slog.Logger) (*Conn, error) {
	hostSide, hubSide := net.Pipe()
	attached := make(chan error, 1)
	go func() {
		_, err := hub.AttachConn(hubSide)
		attached <- err
	}()
	host, err := NewHostConn(hostSide, id, logger)
	if err != nil {
		return nil, err
	}
	if err := <-attached; err != nil {
		host.Close()
		return nil, err
	}
	return host, nil
}
