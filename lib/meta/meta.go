// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package meta answers UI-host questions about the running controller:
// build versions, the channel socket path and the session id.
package meta

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/casement-foundation/casement/lib/lifecycle"
	"github.com/casement-foundation/casement/lib/rpc"
	"github.com/casement-foundation/casement/lib/version"
)

const (
	// ServiceName is the RPC name the service is registered under.
	ServiceName = "meta"

	// AppName is the product name.
	AppName = "casement"
)

// Meta is the controller description returned to hosts.
type Meta struct {
	Versions      version.Versions `cbor:"versions" json:"versions"`
	RPCListenPath string           `cbor:"rpcListenPath,omitempty" json:"rpcListenPath,omitempty"`
	SessionID     string           `cbor:"sessionId" json:"sessionId"`
}

// Service holds the controller description.
type Service struct {
	session uuid.UUID
	ready   *lifecycle.Readiness
	logger  *slog.Logger

	mu         sync.Mutex
	listenPath string
}

// New returns a service for the controller session id.
func New(session uuid.UUID, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{session: session, ready: lifecycle.NewReadiness(), logger: logger}
}

// MarkReady releases callers blocked in Meta.
func (s *Service) MarkReady() { s.ready.MarkReady() }

// SessionID returns the controller session id.
func (s *Service) SessionID() uuid.UUID { return s.session }

// SetRPCListenPath records the socket path hosts connect to.
func (s *Service) SetRPCListenPath(path string) {
	s.mu.Lock()
	s.listenPath = path
	s.mu.Unlock()
	s.logger.Debug("rpc listen path set", "socket", path)
}

// Meta waits until the controller is ready and describes it.
func (s *Service) Meta(ctx context.Context) (Meta, error) {
	if err := s.ready.Wait(ctx); err != nil {
		return Meta{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Meta{
		Versions:      version.Current(),
		RPCListenPath: s.listenPath,
		SessionID:     s.session.String(),
	}, nil
}

// DisplayName is the product name, suffixed "-dev" for development
// builds.
func (s *Service) DisplayName() string {
	if version.IsDev() {
		return AppName + "-dev"
	}
	return AppName
}

// VersionsInfo renders the build description as text.
func (s *Service) VersionsInfo() string {
	return version.Current().Report()
}

// Methods exposes the service as the "meta" RPC service.
func (s *Service) Methods() rpc.Methods {
	return rpc.Methods{
		"meta": rpc.Func0(s.Meta),
		"getDisplayName": rpc.Func0(func(context.Context) (string, error) {
			return s.DisplayName(), nil
		}),
		"versionsInfo": rpc.Func0(func(context.Context) (string, error) {
			return s.VersionsInfo(), nil
		}),
	}
}
