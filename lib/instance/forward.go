// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

// ChannelSecondInstance carries a forwarded [Invocation] from a second
// process to the running controller.
const ChannelSecondInstance = "app:second-instance"

// Forward hands inv to the controller listening on socketPath. It
// connects as a tool (window id 0), sends one frame, and waits for the
// frame to be flushed before closing.
func Forward(ctx context.Context, socketPath string, inv Invocation, logger *slog.Logger) error {
	conn, err := channel.Dial(ctx, socketPath, 0, logger)
	if err != nil {
		return fmt.Errorf("forwarding to running instance: %w", err)
	}
	if err := conn.Send(ChannelSecondInstance, inv); err != nil {
		conn.Close()
		return fmt.Errorf("forwarding to running instance: %w", err)
	}
	return conn.Close()
}

// OnSecondInstance registers fn for invocations forwarded to router.
// Malformed frames are logged and dropped.
func OnSecondInstance(router channel.Router, logger *slog.Logger, fn func(Invocation)) lifecycle.Disposable {
	return router.On(ChannelSecondInstance, func(_ channel.Endpoint, msg channel.Message) {
		var inv Invocation
		if err := msg.Arg(0, &inv); err != nil {
			logger.Warn("dropping malformed second-instance frame", "error", err)
			return
		}
		fn(inv)
	})
}
