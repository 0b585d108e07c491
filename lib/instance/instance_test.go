// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/testutil"
)

func TestAcquireExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "casement.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := Acquire(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Acquire error = %v, want ErrAlreadyRunning", err)
	}
	pid, err := HolderPID(path)
	if err != nil {
		t.Fatalf("HolderPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("HolderPID = %d, want %d", pid, os.Getpid())
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	second.Release()
}

func TestParseInvocation(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "project")
	if err := os.Mkdir(project, 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		args      []string
		cwd       string
		workspace string
		gotoLoc   string
	}{
		{name: "no arguments", cwd: root},
		{name: "relative workspace", args: []string{"project"}, cwd: root, workspace: project},
		{name: "absolute workspace", args: []string{project}, cwd: "/elsewhere", workspace: project},
		{name: "missing workspace", args: []string{"nope"}, cwd: root},
		{name: "goto only", args: []string{"--goto", "a.ts:3:4"}, cwd: root, gotoLoc: "a.ts:3:4"},
		{name: "root cwd uses pwd", args: []string{"--pwd", root, "project"}, cwd: "/", workspace: project},
		{name: "controller flags ignored", args: []string{"--config", "x.yaml", "--debug", "project"}, cwd: root, workspace: project},
		{name: "unknown flags ignored", args: []string{"--future=1", "project"}, cwd: root, workspace: project},
		{name: "last positional wins", args: []string{"nope", "project"}, cwd: root, workspace: project},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			inv, err := ParseInvocation(test.args, test.cwd)
			if err != nil {
				t.Fatalf("ParseInvocation: %v", err)
			}
			if inv.Workspace != test.workspace {
				t.Fatalf("Workspace = %q, want %q", inv.Workspace, test.workspace)
			}
			if inv.Goto != test.gotoLoc {
				t.Fatalf("Goto = %q, want %q", inv.Goto, test.gotoLoc)
			}
			if inv.Cwd != test.cwd {
				t.Fatalf("Cwd = %q, want %q", inv.Cwd, test.cwd)
			}
		})
	}
}

func TestValidWorkspaceUsesPWD(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.go"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", root)
	if got := ValidWorkspace("main.go", ""); got != filepath.Join(root, "main.go") {
		t.Fatalf("ValidWorkspace = %q", got)
	}
	if got := ValidWorkspace("", root); got != "" {
		t.Fatalf("ValidWorkspace(\"\") = %q, want empty", got)
	}
}

func TestForwardReachesRunningController(t *testing.T) {
	socket := filepath.Join(testutil.SocketDir(t), "hub.sock")
	hub := channel.NewHub(socket, testutil.Logger())
	received := make(chan Invocation, 1)
	OnSecondInstance(hub, testutil.Logger(), func(inv Invocation) { received <- inv })

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- hub.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-served
	})
	testutil.RequireClosed(t, hub.Listening(), 5*time.Second, "hub never listened")

	sent := Invocation{Args: []string{"--goto", "a.ts:1"}, Cwd: "/work", Goto: "a.ts:1"}
	if err := Forward(context.Background(), socket, sent, testutil.Logger()); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	got := testutil.RequireReceive(t, received, 5*time.Second, "waiting for forwarded invocation")
	if got.Goto != sent.Goto || got.Cwd != sent.Cwd || len(got.Args) != 2 {
		t.Fatalf("forwarded invocation = %+v, want %+v", got, sent)
	}
	if len(hub.Endpoints()) != 0 {
		t.Fatalf("tool connection listed as a window endpoint")
	}
}

func TestForwardWithoutController(t *testing.T) {
	socket := filepath.Join(testutil.SocketDir(t), "absent.sock")
	if err := Forward(context.Background(), socket, Invocation{}, testutil.Logger()); err == nil {
		t.Fatal("Forward succeeded with no controller listening")
	}
}
