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

	"github.com/casement-foundation/casement/lib/app"
	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/config"
	"github.com/casement-foundation/casement/lib/hostproc"
	"github.com/casement-foundation/casement/lib/instance"
	"github.com/casement-foundation/casement/lib/process"
	"github.com/casement-foundation/casement/lib/storage"
	"github.com/casement-foundation/casement/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("casement", pflag.ContinueOnError)
	var (
		configPath  string
		showVersion bool
		debug       bool
	)
	flags.StringVar(&configPath, "config", "", "configuration file (default: $CASEMENT_CONFIG)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	// Parsed by instance.ParseInvocation; declared here for --help.
	flags.String("goto", "", "open the workspace at file:line:col")
	flags.String("pwd", "", "directory relative paths resolve against when launched from /")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: casement [flags] [workspace]\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("casement %s\n", version.Info())
		return nil
	}

	logger := process.NewLogger(process.Level(debug))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("reading working directory: %w", err)
	}
	invocation, err := instance.ParseInvocation(args, cwd)
	if err != nil {
		return err
	}

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	lock, err := instance.Acquire(cfg.Controller.LockPath)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		logger.Info("forwarding to running instance",
			"socket", cfg.Controller.SocketPath,
			"workspace", invocation.Workspace,
			"goto", invocation.Goto,
		)
		return instance.Forward(ctx, cfg.Controller.SocketPath, invocation, logger)
	}
	if err != nil {
		return err
	}

	store, err := storage.New(storage.Config{
		Root:   cfg.Paths.Storage,
		Watch:  true,
		Logger: logger.With("component", "storage"),
	})
	if err != nil {
		lock.Release()
		return err
	}

	hub := channel.NewHub(cfg.Controller.SocketPath, logger.With("component", "hub"))
	platform := hostproc.New(hostproc.Config{
		Hub: hub,
		Launcher: hostproc.ExecLauncher{
			Command: cfg.Host.Command,
			Args:    cfg.Host.Args,
			Stderr:  os.Stderr,
		},
		AttachTimeout: cfg.AttachTimeout(),
		CloseGrace:    cfg.CloseGrace(),
		Logger:        logger.With("component", "hostproc"),
	})
	home := userHome(os.UserHomeDir, logger)
	application := app.New(app.Config{
		Hub:          hub,
		Platform:     platform,
		Storage:      store,
		Presets:      cfg.Presets(),
		ReplyTimeout: cfg.ReplyTimeout(),
		RecentLimit:  cfg.Recent.Limit,
		UserHome:     home,
		Lock:         lock,
		Logger:       logger,
	})
	defer application.Stop()
	application.Enqueue(invocation)

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	served := make(chan error, 1)
	go func() { served <- hub.Serve(serveCtx) }()

	select {
	case <-hub.Listening():
	case err := <-served:
		return fmt.Errorf("serving hub: %w", err)
	}

	application.MakeReady()
	if err := application.Start(ctx, true); err != nil {
		logger.Error("starting first window failed", "error", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case <-application.Done():
	case serveErr = <-served:
		served = nil
	}
	logger.Info("shutting down")
	application.Stop()
	cancelServe()
	if served != nil {
		serveErr = <-served
	}
	if serveErr != nil {
		return fmt.Errorf("serving hub: %w", serveErr)
	}
	return nil
}

// userHome resolves the home directory handed to every window's
// metadata. Windows get an empty value when it cannot be found.
func userHome(lookup func() (string, error), logger *slog.Logger) string {
	home, err := lookup()
	if err != nil {
		logger.Warn("home directory unavailable", "error", err)
		return ""
	}
	return home
}
