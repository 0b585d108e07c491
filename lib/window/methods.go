// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"context"

	"github.com/casement-foundation/casement/lib/rpc"
)

// ServiceName is the RPC name the coordinator is registered under.
const ServiceName = "window"

func summarize(record *Record) *Summary {
	if record == nil {
		return nil
	}
	summary := record.Summary()
	return &summary
}

func summarizeAll(records []*Record) []Summary {
	summaries := make([]Summary, len(records))
	for i, record := range records {
		summaries[i] = record.Summary()
	}
	return summaries
}

// Methods exposes the coordinator as the "window" RPC service.
func (s *Service) Methods() rpc.Methods {
	return rpc.Methods{
		"open": rpc.Func2(func(ctx context.Context, name string, options OpenOptions) (*Summary, error) {
			record, err := s.Open(ctx, name, options)
			return summarize(record), err
		}),
		"openDashboard": rpc.Func1(func(ctx context.Context, meta Metadata) (*Summary, error) {
			record, err := s.OpenDashboard(ctx, meta)
			return summarize(record), err
		}),
		"hideDashboard": rpc.Proc0(func(context.Context) error {
			s.HideDashboard()
			return nil
		}),
		"closeDashboard": rpc.Func0(s.CloseDashboard),
		"openDialog": rpc.Func2(func(ctx context.Context, name string, props DialogProps) (*Summary, error) {
			record, err := s.OpenDialog(ctx, name, props)
			return summarize(record), err
		}),
		"openEditor": rpc.Func2(func(ctx context.Context, workspace string, options EditorOptions) (*Summary, error) {
			record, err := s.OpenEditor(ctx, workspace, options)
			return summarize(record), err
		}),
		"close":       rpc.Func1(s.Close),
		"closeParent": rpc.Func1(s.CloseParent),
		"minimize":    windowProc(s.Minimize),
		"reload":      windowProc(s.Reload),
		"show":        windowProc(s.Show),
		"hide":        windowProc(s.Hide),
		"focus":       windowProc(s.Focus),
		"resize": rpc.Proc2(func(_ context.Context, id uint32, options ResizeOptions) error {
			s.Resize(id, options)
			return nil
		}),
		"setResult": rpc.Proc2(func(_ context.Context, id uint32, result any) error {
			s.SetResult(id, result)
			return nil
		}),
		"getOneByName": rpc.Func1(func(_ context.Context, name string) (*Summary, error) {
			return summarize(s.GetOneByName(name)), nil
		}),
		"getOneIdByName": rpc.Func1(func(_ context.Context, name string) (*uint32, error) {
			id, ok := s.GetOneIDByName(name)
			if !ok {
				return nil, nil
			}
			return &id, nil
		}),
		"getAllByName": rpc.Func1(func(_ context.Context, name string) ([]Summary, error) {
			return summarizeAll(s.GetAllByName(name)), nil
		}),
		"recentlyFocusWindow": rpc.Func0(func(context.Context) (*Summary, error) {
			return summarize(s.RecentlyFocused()), nil
		}),
		"recentlyEditorWindow": rpc.Func0(func(context.Context) (*Summary, error) {
			return summarize(s.RecentlyUsed(NameEditor)), nil
		}),
		"isLastEditor": rpc.Func1(func(_ context.Context, id uint32) (bool, error) {
			return s.IsLastEditor(id), nil
		}),
		"workspaceOwner": rpc.Func1(func(_ context.Context, path string) (*Summary, error) {
			return summarize(s.WorkspaceOwner(workspacePath(path))), nil
		}),
		"addGoto": rpc.Proc1(func(_ context.Context, location string) error {
			s.AddGoto(location)
			return nil
		}),
		"addWorkspace": rpc.Proc1(func(_ context.Context, workspace string) error {
			s.AddWorkspace(workspace)
			return nil
		}),
	}
}

func windowProc(f func(id uint32)) rpc.Handler {
	return rpc.Proc1(func(_ context.Context, id uint32) error {
		f(id)
		return nil
	})
}
