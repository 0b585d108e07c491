// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/casement-foundation/casement/lib/event"
	"github.com/casement-foundation/casement/lib/hostproc"
	"github.com/casement-foundation/casement/lib/process"
	"github.com/casement-foundation/casement/lib/version"
	"github.com/casement-foundation/casement/lib/window"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("casement-host", pflag.ContinueOnError)
	var showVersion, debug bool
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("casement-host %s\n", version.Info())
		return nil
	}

	identity, err := hostproc.IdentityFromEnv()
	if err != nil {
		return err
	}
	logger := process.NewLogger(process.Level(debug)).With(
		"window_id", identity.WindowID,
		"window", identity.Name,
	)
	slog.SetDefault(logger)

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	host, err := hostproc.Connect(ctx, identity.SocketPath, identity.WindowID, logger)
	if err != nil {
		return err
	}
	defer host.Close()

	frame, err := host.Init(ctx)
	if err != nil {
		return fmt.Errorf("waiting for init frame: %w", err)
	}
	capabilities := frame.Capabilities
	logger.Info("window initialized",
		"type", frame.Props.Type,
		"width", frame.Props.Width,
		"height", frame.Props.Height,
		"resizable", capabilities.Resizable,
	)

	for _, name := range []string{window.EventMetadata, window.EventOpenFile, window.EventDashboardMessage} {
		host.Bus().On(name, func(e *event.Event) {
			var payload any
			if err := e.Decode(&payload); err != nil {
				logger.Warn("undecodable event", "event", e.Name, "error", err)
				return
			}
			logger.Info("event received", "event", e.Name, "payload", payload)
		})
	}

	select {
	case <-host.Done():
		logger.Info("closed by controller")
	case <-ctx.Done():
		logger.Info("signalled, disconnecting")
	}
	return nil
}
