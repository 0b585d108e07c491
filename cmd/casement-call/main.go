// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/config"
	"github.com/casement-foundation/casement/lib/process"
	"github.com/casement-foundation/casement/lib/rpc"
	"github.com/casement-foundation/casement/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("casement-call", pflag.ContinueOnError)
	var (
		socketPath  string
		configPath  string
		timeout     time.Duration
		showVersion bool
	)
	flags.StringVar(&socketPath, "socket", "", "controller socket (default: from configuration)")
	flags.StringVar(&configPath, "config", "", "configuration file (default: $CASEMENT_CONFIG)")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "give up waiting for the response after this long")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: casement-call [flags] <service> <method> [arg...]\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Fprintf(stdout, "casement-call %s\n", version.Info())
		return nil
	}
	if flags.NArg() < 2 {
		flags.Usage()
		return errors.New("service and method are required")
	}

	if socketPath == "" {
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
		socketPath = cfg.Controller.SocketPath
	}

	service, method := flags.Arg(0), flags.Arg(1)
	callArgs := parseArgs(flags.Args()[2:])

	ctx, stop := process.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := process.NewLogger(process.Level(false))
	conn, err := channel.Dial(ctx, socketPath, 0, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	proxy := rpc.NewProxy(conn, service)
	defer proxy.Close()

	var result any
	if err := proxy.Call(ctx, method, &result, callArgs...); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// parseArgs decodes each argument as relaxed JSON, falling back to the
// literal string.
func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, arg := range raw {
		var value any
		if err := json.Unmarshal(jsonc.ToJSON([]byte(arg)), &value); err != nil {
			value = arg
		}
		args = append(args, value)
	}
	return args
}
