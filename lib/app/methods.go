// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"

	"github.com/casement-foundation/casement/lib/rpc"
)

// ServiceName is the RPC name the app is registered under.
const ServiceName = "app"

// Methods exposes the app as the "app" RPC service.
func (a *App) Methods() rpc.Methods {
	return rpc.Methods{
		"start": rpc.Proc0(func(ctx context.Context) error {
			return a.Start(ctx, false)
		}),
		"quit": rpc.Proc0(func(context.Context) error {
			a.Quit()
			return nil
		}),
		"openPath": rpc.Proc1(a.OpenPath),
	}
}
