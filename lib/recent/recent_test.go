// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package recent

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/casement-foundation/casement/lib/storage"
	"github.com/casement-foundation/casement/lib/testutil"
)

func newService(t *testing.T, limit int) (*Service, *storage.Service) {
	t.Helper()
	store, err := storage.New(storage.Config{
		Root:   filepath.Join(t.TempDir(), "storage"),
		Logger: testutil.Logger(),
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return New(store, limit, testutil.Logger()), store
}

func TestEmptyList(t *testing.T) {
	service, _ := newService(t, 0)
	if got := service.Workspaces(); len(got) != 0 || got == nil {
		t.Fatalf("Workspaces = %#v, want empty non-nil", got)
	}
}

func TestAddOrdersNewestFirst(t *testing.T) {
	service, _ := newService(t, 0)
	ctx := context.Background()
	for _, workspace := range []string{"/a", "/b", "/c", "/a"} {
		if err := service.Add(ctx, workspace); err != nil {
			t.Fatalf("Add(%s): %v", workspace, err)
		}
	}
	if got, want := service.Workspaces(), []string{"/a", "/c", "/b"}; !slices.Equal(got, want) {
		t.Fatalf("Workspaces = %v, want %v", got, want)
	}
}

func TestAddTrimsToLimit(t *testing.T) {
	service, _ := newService(t, 3)
	for i := range 5 {
		if err := service.Add(context.Background(), fmt.Sprintf("/w%d", i)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if got, want := service.Workspaces(), []string{"/w4", "/w3", "/w2"}; !slices.Equal(got, want) {
		t.Fatalf("Workspaces = %v, want %v", got, want)
	}
}

func TestStoredFormat(t *testing.T) {
	service, store := newService(t, 0)
	if err := store.SetItem(Item, map[string]any{"pinned": "/p"}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := service.Add(context.Background(), "/a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	value, err := store.GetItem(Item)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	item := value.(map[string]any)
	if item[Key] != `["/a"]` {
		t.Errorf("%s = %#v, want a JSON-encoded list", Key, item[Key])
	}
	if item["pinned"] != "/p" {
		t.Error("Add dropped other fields of the item")
	}
}

func TestMalformedListReadsEmpty(t *testing.T) {
	service, store := newService(t, 0)
	if err := store.SetItem(Item, map[string]any{Key: "not a list"}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if got := service.Workspaces(); len(got) != 0 {
		t.Fatalf("Workspaces = %v, want empty", got)
	}
	if err := service.Add(context.Background(), "/a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := service.Workspaces(); !slices.Equal(got, []string{"/a"}) {
		t.Fatalf("Workspaces = %v", got)
	}
}
