// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"

	"github.com/casement-foundation/casement/lib/rpc"
)

// ServiceName is the RPC name the store is registered under.
const ServiceName = "storage"

// EventChange is emitted on event:storage with a Change argument.
const EventChange = "change"

// Methods exposes the store as the "storage" RPC service.
func (s *Service) Methods() rpc.Methods {
	return rpc.Methods{
		"getItem": rpc.Func1(func(_ context.Context, name string) (any, error) {
			return s.GetItem(name)
		}),
		"setItem": rpc.Proc2(func(_ context.Context, name string, value any) error {
			return s.SetItem(name, value)
		}),
		"getStoragePath": rpc.Func1(func(_ context.Context, name string) (string, error) {
			return s.StoragePath(name)
		}),
		"setRootStoragePath": rpc.Proc1(func(_ context.Context, path string) error {
			return s.SetRootStoragePath(path)
		}),
		"workspaceStorageName": rpc.Func1(func(_ context.Context, workspace string) (string, error) {
			return WorkspaceStorageName(workspace), nil
		}),
	}
}
