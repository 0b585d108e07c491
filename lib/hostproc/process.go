// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package hostproc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/casement-foundation/casement/lib/window"
)

// LaunchSpec describes the host to start for one window.
type LaunchSpec struct {
	WindowID   uint32
	SocketPath string
	Name       string
	Metadata   window.Metadata
}

// Process is a running host.
type Process interface {
	Pid() int

	// Signal delivers sig to the host and everything it started.
	Signal(sig unix.Signal) error

	// Wait blocks until the host exits. It is called exactly once.
	Wait() error
}

// Launcher starts host processes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// ExecLauncher runs Command with Args for every window. The host learns
// its identity from the CASEMENT_* environment variables.
type ExecLauncher struct {
	Command string
	Args    []string

	// Stderr receives the host's stderr; nil inherits ours.
	Stderr io.Writer
}

func (l ExecLauncher) Launch(_ context.Context, spec LaunchSpec) (Process, error) {
	if l.Command == "" {
		return nil, fmt.Errorf("host command not configured (set host.command)")
	}
	metadata, err := json.Marshal(spec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata for window %d: %w", spec.WindowID, err)
	}

	// Not CommandContext: the host outlives the Create call that
	// launched it.
	cmd := exec.Command(l.Command, l.Args...)
	cmd.Env = append(os.Environ(),
		EnvWindowID+"="+strconv.FormatUint(uint64(spec.WindowID), 10),
		EnvSocket+"="+spec.SocketPath,
		EnvWindowName+"="+spec.Name,
		EnvMetadata+"="+string(metadata),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if l.Stderr != nil {
		cmd.Stderr = l.Stderr
	}
	// Own process group so a signal reaches the host's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting host for window %d: %w", spec.WindowID, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Signal(sig unix.Signal) error {
	return unix.Kill(-p.cmd.Process.Pid, sig)
}

func (p *execProcess) Wait() error { return p.cmd.Wait() }
