// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// Invocation is one command line as seen by the controller: either the
// process's own arguments at launch or a later invocation forwarded by
// [Forward].
type Invocation struct {
	Args      []string `cbor:"args"`
	Cwd       string   `cbor:"cwd"`
	Workspace string   `cbor:"workspace,omitempty"`
	Goto      string   `cbor:"goto,omitempty"`
}

// Empty reports whether the invocation asks for neither a workspace nor
// a goto location.
func (inv Invocation) Empty() bool {
	return inv.Workspace == "" && inv.Goto == ""
}

// ParseInvocation extracts the workspace and --goto location from args
// (without the program name). cwd is the invoking process's working
// directory. A launch from "/" (as desktop launchers do) falls back to
// --pwd for resolving relative paths. The controller's other flags are
// accepted and ignored so its full command line can be passed in.
func ParseInvocation(args []string, cwd string) (Invocation, error) {
	flags := pflag.NewFlagSet("casement", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)
	gotoLocation := flags.String("goto", "", "open file at file:line:col")
	pwd := flags.String("pwd", "", "directory relative paths resolve against")
	flags.String("config", "", "")
	flags.Bool("debug", false, "")
	flags.Bool("version", false, "")
	if err := flags.Parse(args); err != nil {
		return Invocation{}, fmt.Errorf("parsing arguments: %w", err)
	}

	base := cwd
	if base == "/" || base == "" {
		base = *pwd
	}
	inv := Invocation{
		Args: append([]string(nil), args...),
		Cwd:  cwd,
		Goto: *gotoLocation,
	}
	if positional := flags.Args(); len(positional) > 0 {
		inv.Workspace = ValidWorkspace(positional[len(positional)-1], base)
	}
	return inv, nil
}

// ValidWorkspace resolves dirOrFile to an existing absolute path. An
// absolute path is returned as-is when it exists; a relative one is
// joined to pwd (the PWD environment variable when pwd is empty). Paths
// that do not exist resolve to "".
func ValidWorkspace(dirOrFile, pwd string) string {
	if dirOrFile == "" {
		return ""
	}
	if filepath.IsAbs(dirOrFile) {
		if exists(dirOrFile) {
			return filepath.Clean(dirOrFile)
		}
		return ""
	}
	if pwd == "" {
		pwd = os.Getenv("PWD")
	}
	if pwd == "" {
		return ""
	}
	candidate := filepath.Join(pwd, dirOrFile)
	if exists(candidate) {
		return candidate
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
