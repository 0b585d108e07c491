// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// Transport is the controller-side surface the registry serves on.
// [channel.Hub] implements it.
type Transport interface {
	channel.Router
	Broadcast(channel string, args ...any) error
}

// RequestChannel returns the channel requests for service travel on.
func RequestChannel(service string) string { return "request:" + service }

// ResponseChannel returns the channel responses for service travel on.
func ResponseChannel(service string) string { return "response:" + service }

// EventChannel returns the channel service events are pushed on.
func EventChannel(service string) string { return "event:" + service }

// Registry holds at most one live implementation per service name and
// serves requests for all of them.
type Registry struct {
	transport Transport
	logger    *slog.Logger

	// ctx is the parent of every handler context. Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	services  map[string]*Registration
	listeners map[string]lifecycle.Disposable
	closed    bool

	inflight sync.WaitGroup
}

// Registration is one installed implementation.
type Registration struct {
	name     string
	service  Service
	methods  Methods
	registry *Registry
	done     chan struct{}
	once     sync.Once
}

// Name returns the service name.
func (r *Registration) Name() string { return r.name }

// Done is closed when the registration is disposed or replaced.
func (r *Registration) Done() <-chan struct{} { return r.done }

// Dispose removes the registration. Disposing a registration that has
// already been replaced leaves its replacement in place.
func (r *Registration) Dispose() {
	r.registry.unregister(r)
}

// NewRegistry creates a registry serving on transport.
func NewRegistry(transport Transport, logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		transport: transport,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		services:  make(map[string]*Registration),
		listeners: make(map[string]lifecycle.Disposable),
	}
}

// Register installs service under name, disposing any previous
// registration of the same name first. Requests dispatched after
// Register returns reach only the new implementation.
func (r *Registry) Register(name string, service Service) *Registration {
	registration := &Registration{
		name:     name,
		service:  service,
		methods:  service.Methods(),
		registry: r,
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		registration.once.Do(func() { close(registration.done) })
		return registration
	}
	previous := r.services[name]
	r.services[name] = registration
	if _, ok := r.listeners[name]; !ok {
		r.listeners[name] = r.transport.On(RequestChannel(name), r.dispatcher(name))
	}
	r.mu.Unlock()

	if previous != nil {
		previous.once.Do(func() { close(previous.done) })
		r.logger.Info("service replaced", "service", name)
	} else {
		r.logger.Debug("service registered", "service", name)
	}
	return registration
}

func (r *Registry) unregister(registration *Registration) {
	r.mu.Lock()
	if r.services[registration.name] == registration {
		delete(r.services, registration.name)
		if listener, ok := r.listeners[registration.name]; ok {
			listener.Dispose()
			delete(r.listeners, registration.name)
		}
	}
	r.mu.Unlock()
	registration.once.Do(func() { close(registration.done) })
}

// Lookup returns the live implementation registered under name.
func (r *Registry) Lookup(name string) (Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	registration, ok := r.services[name]
	if !ok {
		return nil, false
	}
	return registration.service, true
}

// Names returns the registered service names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	return names
}

// Emit pushes event to every attached window host on "event:<service>".
func (r *Registry) Emit(service, event string, args ...any) error {
	return r.transport.Broadcast(EventChannel(service), append([]any{event}, args...)...)
}

// Close disposes every registration, cancels in-flight handler
// contexts, and waits for the handlers to return.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	registrations := make([]*Registration, 0, len(r.services))
	for _, registration := range r.services {
		registrations = append(registrations, registration)
	}
	r.mu.Unlock()

	for _, registration := range registrations {
		registration.Dispose()
	}
	r.cancel()
	r.inflight.Wait()
}

// dispatcher returns the stable listener for name. It resolves the
// current registration on the read goroutine, so ordering between a
// replacement and later requests on one connection is preserved, then
// runs the handler on its own goroutine so handlers may themselves wait
// for other frames.
func (r *Registry) dispatcher(name string) channel.Listener {
	return func(source channel.Endpoint, msg channel.Message) {
		if msg.NumArgs() < 2 {
			r.logger.Warn("malformed request", "service", name, "args", msg.NumArgs())
			return
		}
		var method string
		var requestID uint64
		if err := msg.Arg(0, &method); err != nil {
			r.logger.Warn("malformed request", "service", name, "error", err)
			return
		}
		if err := msg.Arg(1, &requestID); err != nil {
			r.logger.Warn("malformed request", "service", name, "method", method, "error", err)
			return
		}

		r.mu.Lock()
		registration := r.services[name]
		if registration == nil || r.closed {
			r.mu.Unlock()
			return
		}
		r.inflight.Add(1)
		r.mu.Unlock()

		call := &Call{
			Service: name,
			Method:  method,
			Sender:  msg.Sender,
			args:    msg.Args[2:],
		}
		go func() {
			defer r.inflight.Done()
			r.serve(source, registration, call, requestID)
		}()
	}
}

func (r *Registry) serve(source channel.Endpoint, registration *Registration, call *Call, requestID uint64) {
	ctx := context.WithValue(r.ctx, senderKey{}, call.Sender)
	result, remote := invoke(ctx, registration.methods[call.Method], call)

	if source.Destroyed() {
		r.logger.Debug("dropping response to destroyed host",
			"service", call.Service,
			"method", call.Method,
			"window_id", source.ID(),
		)
		return
	}

	var err error
	if remote != nil {
		r.logger.Debug("request failed",
			"service", call.Service,
			"method", call.Method,
			"error", remote.Message,
		)
		err = source.Send(ResponseChannel(call.Service), requestID, remote)
	} else {
		err = source.Send(ResponseChannel(call.Service), requestID, nil, result)
	}
	if err != nil && !errors.Is(err, channel.ErrDestroyed) {
		r.logger.Error("sending response failed",
			"service", call.Service,
			"method", call.Method,
			"error", err,
		)
		// The result could not be encoded; tell the caller rather
		// than leaving it pending.
		failure := &RemoteError{Message: fmt.Sprintf("encoding result: %v", err)}
		_ = source.Send(ResponseChannel(call.Service), requestID, failure)
	}
}

// invoke runs handler, converting a returned error or a panic into a
// RemoteError.
func invoke(ctx context.Context, handler Handler, call *Call) (result any, remote *RemoteError) {
	if handler == nil {
		return nil, &RemoteError{Message: noHandler(call.Service, call.Method).Error()}
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			remote = &RemoteError{
				Message: fmt.Sprint(recovered),
				Stack:   string(debug.Stack()),
			}
		}
	}()
	value, err := handler(ctx, call)
	if err != nil {
		var already *RemoteError
		if errors.As(err, &already) {
			return nil, &RemoteError{Message: already.Error(), Stack: already.Stack}
		}
		return nil, &RemoteError{Message: err.Error()}
	}
	return value, nil
}
