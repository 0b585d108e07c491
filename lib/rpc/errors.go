// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoHandler is the cause of a failed call to a method the service
// does not implement.
var ErrNoHandler = errors.New("no request handler")

// ErrReservedMethod is returned when calling the method name reserved
// for event subscription.
var ErrReservedMethod = errors.New("rpc: method name \"on\" is reserved for event subscription")

// ErrProxyClosed is returned by calls pending on, or made after, a
// closed Proxy.
var ErrProxyClosed = errors.New("rpc: proxy closed")

// RemoteError is a failure raised by a service implementation, carried
// back to the caller as the error half of a response.
type RemoteError struct {
	Service string `cbor:"-"`
	Method  string `cbor:"-"`
	Message string `cbor:"message"`
	Stack   string `cbor:"stack,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Service == "" {
		return e.Message
	}
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Method, e.Message)
}

// Is matches ErrNoHandler for calls the service had no handler for.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNoHandler && strings.HasPrefix(e.Message, ErrNoHandler.Error())
}

func noHandler(service, method string) error {
	return fmt.Errorf("%w for %s.%s", ErrNoHandler, service, method)
}
