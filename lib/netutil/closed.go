// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors for channel read and
// write loops.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal end of a channel
// connection: EOF, a closed connection or pipe, a broken pipe, or a
// connection reset. A UI-host process that exits (its window closed)
// produces one of these on the controller side, and that must not be
// logged as a failure.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
