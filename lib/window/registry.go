// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"slices"
	"sync"
)

// Registry holds the records of every window that has not yet reported
// closed, indexed by id and by name. Iteration follows creation order.
type Registry struct {
	mu      sync.RWMutex
	records map[uint32]*Record
	order   []uint32
	byName  map[string][]uint32
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[uint32]*Record),
		byName:  make(map[string][]uint32),
	}
}

func (r *Registry) add(record *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.id]; exists {
		return
	}
	r.records[record.id] = record
	r.order = append(r.order, record.id)
	r.byName[record.name] = append(r.byName[record.name], record.id)
}

func (r *Registry) remove(record *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[record.id] != record {
		return
	}
	delete(r.records, record.id)
	r.order = slices.DeleteFunc(r.order, func(id uint32) bool { return id == record.id })
	ids := slices.DeleteFunc(r.byName[record.name], func(id uint32) bool { return id == record.id })
	if len(ids) == 0 {
		delete(r.byName, record.name)
	} else {
		r.byName[record.name] = ids
	}
}

// Get returns the record for id.
func (r *Registry) Get(id uint32) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	return record, ok
}

// OneByName returns the oldest live record named name.
func (r *Registry) OneByName(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byName[name]
	if len(ids) == 0 {
		return nil, false
	}
	return r.records[ids[0]], true
}

// AllByName returns every live record named name, oldest first.
func (r *Registry) AllByName(name string) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byName[name]
	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, r.records[id])
	}
	return records
}

// All returns every live record, oldest first.
func (r *Registry) All() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		records = append(records, r.records[id])
	}
	return records
}

// Children returns the live records whose parent is id.
func (r *Registry) Children(id uint32) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var children []*Record
	for _, childID := range r.order {
		if child := r.records[childID]; child.ParentID() == id {
			children = append(children, child)
		}
	}
	return children
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Resolver answers event-condition queries against a registry and the
// platform's focus state.
type Resolver struct {
	registry *Registry
	platform Platform
}

// NewResolver returns a resolver over registry and platform.
func NewResolver(registry *Registry, platform Platform) *Resolver {
	return &Resolver{registry: registry, platform: platform}
}

func (r *Resolver) WindowsByName(name string) []uint32 {
	return ids(r.registry.AllByName(name))
}

func (r *Resolver) WindowExists(id uint32) bool {
	_, ok := r.registry.Get(id)
	return ok
}

func (r *Resolver) FocusedWindow() (uint32, bool) {
	id, ok := r.platform.Focused()
	if !ok {
		return 0, false
	}
	if _, live := r.registry.Get(id); !live {
		return 0, false
	}
	return id, true
}

func (r *Resolver) AllWindows() []uint32 {
	return ids(r.registry.All())
}

func ids(records []*Record) []uint32 {
	out := make([]uint32, len(records))
	for i, record := range records {
		out[i] = record.id
	}
	return out
}
