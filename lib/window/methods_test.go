// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window_test

import (
	"errors"
	"testing"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/rpc"
	"github.com/casement-foundation/casement/lib/testutil"
	"github.com/casement-foundation/casement/lib/window"
)

// newClient registers f's service on a hub and returns a client
// connected as window hostID.
func newClient(t *testing.T, f *fixture, hostID uint32) *window.Client {
	t.Helper()
	hub := channel.NewHub("", testutil.Logger())
	registry := rpc.NewRegistry(hub, testutil.Logger())
	registry.Register(window.ServiceName, f.service)
	host, err := channel.Pipe(hub, hostID, testutil.Logger())
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	t.Cleanup(func() {
		host.Close()
		registry.Close()
		hub.Close()
	})
	return window.NewClient(host)
}

func TestClientOpenAndQuery(t *testing.T) {
	f := newFixture(t)
	client := newClient(t, f, 1)
	ctx := testContext(t)

	summary, err := client.Open(ctx, "settings", window.OpenOptions{
		Meta:  window.Metadata{"section": "keys"},
		Props: window.Props{Width: 500},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if summary == nil || summary.Name != "settings" || summary.State != "shown" {
		t.Fatalf("Open summary = %+v", summary)
	}
	if summary.Metadata["section"] != "keys" {
		t.Errorf("summary meta = %v", summary.Metadata)
	}
	if width, _ := f.platform.Window(summary.ID).Size(); width != 500 {
		t.Errorf("width = %d, want the caller's 500", width)
	}

	id, ok, err := client.GetOneIDByName(ctx, "settings")
	if err != nil || !ok || id != summary.ID {
		t.Fatalf("GetOneIDByName = %d, %v, %v", id, ok, err)
	}
	if _, ok, err := client.GetOneIDByName(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetOneIDByName(missing) = %v, %v", ok, err)
	}
	missing, err := client.GetOneByName(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("GetOneByName(missing) = %+v, %v", missing, err)
	}
	all, err := client.GetAllByName(ctx, "settings")
	if err != nil || len(all) != 1 || all[0].ID != summary.ID {
		t.Fatalf("GetAllByName = %+v, %v", all, err)
	}
}

func TestClientCloseReturnsResult(t *testing.T) {
	f := newFixture(t)
	client := newClient(t, f, 1)
	ctx := testContext(t)

	parent, err := client.Open(ctx, window.NameDefault, window.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dialog, err := client.OpenDialog(ctx, "confirm", window.DialogProps{ParentID: parent.ID})
	if err != nil {
		t.Fatalf("OpenDialog: %v", err)
	}
	if dialog.ParentID != parent.ID {
		t.Fatalf("dialog parent = %d, want %d", dialog.ParentID, parent.ID)
	}

	type answer struct {
		Confirmed bool `cbor:"confirmed"`
	}
	if err := client.SetResult(ctx, dialog.ID, answer{Confirmed: true}); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	var got answer
	if err := client.Close(ctx, dialog.ID, &got); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !got.Confirmed {
		t.Fatal("Close did not return the dialog's result")
	}
	if _, ok := f.service.Registry().Get(parent.ID); !ok {
		t.Fatal("closing a dialog closed its parent")
	}

	var none any
	if err := client.Close(ctx, 999, &none); err != nil || none != nil {
		t.Fatalf("Close(999) = %v, %v", none, err)
	}
}

func TestClientEditorCalls(t *testing.T) {
	f := newFixture(t)
	client := newClient(t, f, 1)
	ctx := testContext(t)
	proj, file := project(t)

	editor, err := client.OpenEditor(ctx, proj, window.EditorOptions{})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}
	if editor.Workspace != proj {
		t.Fatalf("editor workspace = %q", editor.Workspace)
	}
	owner, err := client.WorkspaceOwner(ctx, "file://"+file)
	if err != nil || owner == nil || owner.ID != editor.ID {
		t.Fatalf("WorkspaceOwner = %+v, %v", owner, err)
	}
	last, err := client.IsLastEditor(ctx, editor.ID)
	if err != nil || !last {
		t.Fatalf("IsLastEditor = %v, %v", last, err)
	}
	recent, err := client.RecentlyEditor(ctx)
	if err != nil || recent == nil || recent.ID != editor.ID {
		t.Fatalf("RecentlyEditor = %+v, %v", recent, err)
	}

	if err := client.AddGoto(ctx, file+":2:1"); err != nil {
		t.Fatalf("AddGoto: %v", err)
	}
	if f.service.QueuedGotos() != 1 {
		t.Fatalf("queued gotos = %d, want 1", f.service.QueuedGotos())
	}
	if err := client.AddWorkspace(ctx, proj); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}
	if f.service.QueuedWorkspaces() != 1 {
		t.Fatalf("queued workspaces = %d, want 1", f.service.QueuedWorkspaces())
	}
}

func TestClientControls(t *testing.T) {
	f := newFixture(t)
	client := newClient(t, f, 1)
	ctx := testContext(t)

	summary, err := client.Open(ctx, window.NameDefault, window.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	native := f.platform.Window(summary.ID)

	if err := client.Resize(ctx, summary.ID, window.ResizeOptions{Height: 300}); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if width, height := native.Size(); width != 1200 || height != 300 {
		t.Errorf("size = %dx%d, want 1200x300", width, height)
	}
	if err := client.Minimize(ctx, summary.ID); err != nil || !native.IsMinimized() {
		t.Fatalf("Minimize: %v, minimized=%v", err, native.IsMinimized())
	}
	if err := client.Focus(ctx, summary.ID); err != nil || native.IsMinimized() {
		t.Fatalf("Focus: %v, minimized=%v", err, native.IsMinimized())
	}
	if err := client.Hide(ctx, summary.ID); err != nil || native.Visible() {
		t.Fatalf("Hide: %v, visible=%v", err, native.Visible())
	}
	if err := client.Show(ctx, summary.ID); err != nil || !native.Visible() {
		t.Fatalf("Show: %v, visible=%v", err, native.Visible())
	}
	if err := client.Reload(ctx, summary.ID); err != nil || native.Reloads() != 1 {
		t.Fatalf("Reload: %v, reloads=%d", err, native.Reloads())
	}
	focused, err := client.RecentlyFocused(ctx)
	if err != nil || focused == nil || focused.ID != summary.ID {
		t.Fatalf("RecentlyFocused = %+v, %v", focused, err)
	}
}

func TestClientUnknownMethod(t *testing.T) {
	f := newFixture(t)
	client := newClient(t, f, 1)
	err := client.Proxy().Call(testContext(t), "maximize", nil, uint32(1))
	if !errors.Is(err, rpc.ErrNoHandler) {
		t.Fatalf("unknown method error = %v, want ErrNoHandler", err)
	}
}
