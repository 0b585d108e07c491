// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"context"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/casement-foundation/casement/lib/event"
)

// OpenFile is the payload of an "open-file" event.
type OpenFile struct {
	// OpenFile is the file URI to open, empty when only goto
	// locations are being delivered.
	OpenFile  string   `cbor:"openFile,omitempty"`
	GotoInfos []string `cbor:"gotoInfos,omitempty"`
}

// EditorOptions are the caller's inputs to OpenEditor.
type EditorOptions struct {
	// Reopen closes an editor already showing the workspace and opens
	// a fresh one instead of focusing it.
	Reopen bool     `cbor:"reopen,omitempty"`
	Meta   Metadata `cbor:"meta,omitempty"`
	Props  Props    `cbor:"props,omitempty"`
}

// orderedSet keeps distinct strings in insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (o *orderedSet) add(value string) {
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	if _, ok := o.seen[value]; ok {
		return
	}
	o.seen[value] = struct{}{}
	o.items = append(o.items, value)
}

func (o *orderedSet) drain() []string {
	items := o.items
	o.items = nil
	o.seen = nil
	if items == nil {
		return []string{}
	}
	return items
}

func (o *orderedSet) len() int { return len(o.items) }

// AddGoto queues a "file:line:column" location for the next editor.
func (s *Service) AddGoto(location string) {
	s.queueMu.Lock()
	s.gotos.add(location)
	s.queueMu.Unlock()
}

// AddWorkspace queues a workspace (path or file URI) to open on the
// next start.
func (s *Service) AddWorkspace(workspace string) {
	s.queueMu.Lock()
	s.workspaces.add(workspace)
	s.queueMu.Unlock()
}

// DrainGotos returns the queued goto locations and clears the queue.
func (s *Service) DrainGotos() []string {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.gotos.drain()
}

// DrainWorkspaces returns the queued workspaces and clears the queue.
func (s *Service) DrainWorkspaces() []string {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.workspaces.drain()
}

// QueuedGotos returns the number of queued goto locations.
func (s *Service) QueuedGotos() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.gotos.len()
}

// QueuedWorkspaces returns the number of queued workspaces.
func (s *Service) QueuedWorkspaces() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.workspaces.len()
}

// WorkspaceOwner returns the editor whose workspace contains path, or
// nil. When workspaces nest, the innermost one wins.
func (s *Service) WorkspaceOwner(path string) *Record {
	path = filepath.Clean(path)
	var owner *Record
	for _, editor := range s.registry.AllByName(NameEditor) {
		workspace := editor.Workspace()
		if workspace == "" || !withinWorkspace(path, workspace) {
			continue
		}
		if owner == nil || len(workspace) > len(owner.Workspace()) {
			owner = editor
		}
	}
	return owner
}

func withinWorkspace(path, workspace string) bool {
	workspace = filepath.Clean(workspace)
	return path == workspace || strings.HasPrefix(path, workspace+string(filepath.Separator))
}

func (s *Service) editorForWorkspace(workspace string) *Record {
	for _, editor := range s.registry.AllByName(NameEditor) {
		if editor.Workspace() == workspace {
			return editor
		}
	}
	return nil
}

// OpenEditor opens workspace (a directory, a workspace file, a single
// file, or a file URI to one of those) in an editor window, consuming
// the queued goto locations.
//
// A single file, or goto locations without a workspace, go to the
// editor that owns the file (or the most recently used editor) as an
// "open-file" event; the returned record is that editor. An editor
// already showing the workspace is focused unless options.Reopen is
// set. Otherwise a new editor is opened, the workspace is recorded as
// recent, and the dashboard is closed.
func (s *Service) OpenEditor(ctx context.Context, workspace string, options EditorOptions) (*Record, error) {
	workspace = workspacePath(workspace)
	gotos := s.DrainGotos()

	route, err := s.routeOpenFile(ctx, workspace, gotos)
	if err != nil || route.handled {
		return route.target, err
	}

	if workspace != "" {
		if found := s.editorForWorkspace(workspace); found != nil {
			if !options.Reopen {
				found.show()
				return found, nil
			}
			if _, err := s.Close(ctx, found.ID()); err != nil {
				return nil, err
			}
		}
	}

	projectPath, openFile := workspace, ""
	if route.fileMode {
		projectPath, openFile = "", workspace
	}
	meta := maps.Clone(options.Meta)
	if meta == nil {
		meta = make(Metadata)
	}
	meta["gotoInfos"] = gotos
	meta["openFile"] = openFile
	meta["workspaceUri"] = fileURI(workspace)

	if dashboard := s.GetOneByName(NameDashboard); dashboard != nil {
		dashboard.close()
	}

	s.logger.Info("opening editor", "workspace", workspace, "file_mode", route.fileMode)
	record, err := s.open(ctx, NameEditor, OpenOptions{Meta: meta, Props: options.Props}, projectPath)
	if err != nil {
		return nil, err
	}
	if projectPath != "" && s.recent != nil {
		if err := s.recent.Add(ctx, projectPath); err != nil {
			s.logger.Warn("recording recent workspace failed", "workspace", projectPath, "error", err)
		}
	}
	record.show()
	return record, nil
}

type openRoute struct {
	// handled means no new editor is needed; target is the window
	// that took the request, if any.
	handled bool
	target  *Record

	// fileMode means workspace names a single file.
	fileMode bool
}

func (s *Service) routeOpenFile(ctx context.Context, workspace string, gotos []string) (openRoute, error) {
	if workspace == "" {
		if len(gotos) == 0 {
			return openRoute{}, nil
		}
		editor := s.RecentlyUsed(NameEditor)
		if editor == nil {
			return openRoute{}, nil
		}
		s.events.Emit(EventOpenFile, OpenFile{GotoInfos: gotos}, event.Condition{WindowID: editor.ID()})
		return openRoute{handled: true, target: editor}, nil
	}

	info, err := os.Stat(workspace)
	if err != nil {
		s.logger.Warn("workspace unavailable, opening dashboard", "workspace", workspace, "error", err)
		dashboard, err := s.OpenDashboard(ctx, nil)
		return openRoute{handled: true, target: dashboard}, err
	}
	fileMode := info.Mode().IsRegular() && !strings.HasSuffix(workspace, s.suffix)

	owner := s.WorkspaceOwner(workspace)
	if owner == nil && fileMode {
		owner = s.RecentlyUsed(NameEditor)
	}
	if owner == nil {
		return openRoute{fileMode: fileMode}, nil
	}

	if fileMode {
		s.logger.Debug("routing file to editor", "path", workspace, "window_id", owner.ID())
		s.events.Emit(EventOpenFile, OpenFile{OpenFile: fileURI(workspace), GotoInfos: gotos},
			event.Condition{WindowID: owner.ID()})
		return openRoute{handled: true, target: owner}, nil
	}
	if len(gotos) > 0 {
		s.events.Emit(EventOpenFile, OpenFile{GotoInfos: gotos}, event.Condition{WindowID: owner.ID()})
	}
	return openRoute{}, nil
}

// workspacePath accepts a filesystem path or a file URI.
func workspacePath(workspace string) string {
	if workspace == "" {
		return ""
	}
	if strings.HasPrefix(workspace, "file://") {
		if parsed, err := url.Parse(workspace); err == nil {
			return filepath.Clean(parsed.Path)
		}
	}
	return filepath.Clean(workspace)
}

func fileURI(path string) string {
	if path == "" {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}
