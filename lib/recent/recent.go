// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package recent keeps the list of recently opened workspaces in the
// "recent" storage item.
package recent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/casement-foundation/casement/lib/rpc"
)

const (
	// ServiceName is the RPC name the service is registered under.
	ServiceName = "recent"

	// Item is the storage item holding the list.
	Item = "recent"

	// Key is the item field holding the JSON-encoded list, newest
	// first.
	Key = "RECENT_WORKSPACES"

	// DefaultLimit bounds the list length.
	DefaultLimit = 20
)

// Store is the slice of the storage service the list needs.
type Store interface {
	GetItem(name string) (any, error)
	SetItem(name string, value any) error
}

// Service reads and updates the recent list.
type Service struct {
	store  Store
	limit  int
	logger *slog.Logger

	mu sync.Mutex
}

// New returns a service keeping at most limit entries (DefaultLimit
// when limit <= 0).
func New(store Store, limit int, logger *slog.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, limit: limit, logger: logger}
}

// Workspaces returns the recent workspaces, newest first. A missing or
// malformed list reads as empty.
func (s *Service) Workspaces() []string {
	_, list := s.load()
	return list
}

func (s *Service) load() (map[string]any, []string) {
	value, err := s.store.GetItem(Item)
	if err != nil {
		s.logger.Warn("reading recent workspaces failed", "error", err)
		return map[string]any{}, []string{}
	}
	item, _ := value.(map[string]any)
	if item == nil {
		item = map[string]any{}
	}
	encoded, _ := item[Key].(string)
	if encoded == "" {
		return item, []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		s.logger.Warn("recent workspace list is malformed, starting over", "error", err)
		return item, []string{}
	}
	return item, list
}

// Add moves workspace to the front of the list.
func (s *Service) Add(_ context.Context, workspace string) error {
	if workspace == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, list := s.load()
	list = slices.DeleteFunc(list, func(entry string) bool { return entry == workspace })
	list = slices.Insert(list, 0, workspace)
	if len(list) > s.limit {
		list = list[:s.limit]
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding recent workspaces: %w", err)
	}

	// Keep any other fields a UI stored in the same item.
	updated := maps.Clone(item)
	updated[Key] = string(encoded)
	if err := s.store.SetItem(Item, updated); err != nil {
		return fmt.Errorf("saving recent workspaces: %w", err)
	}
	s.logger.Debug("recent workspace recorded", "workspace", workspace, "count", len(list))
	return nil
}

// Methods exposes the list as the "recent" RPC service.
func (s *Service) Methods() rpc.Methods {
	return rpc.Methods{
		"recentWorkspaces": rpc.Func0(func(context.Context) ([]string, error) {
			return s.Workspaces(), nil
		}),
		"add": rpc.Proc1(func(ctx context.Context, workspace string) error {
			return s.Add(ctx, workspace)
		}),
	}
}
