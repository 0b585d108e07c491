// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"context"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/rpc"
)

// Client calls the "window" service from a UI-host.
type Client struct {
	proxy *rpc.Proxy
}

// NewClient returns a client calling through endpoint.
func NewClient(endpoint channel.Endpoint) *Client {
	return &Client{proxy: rpc.NewProxy(endpoint, ServiceName)}
}

// Proxy returns the underlying proxy, for event subscriptions.
func (c *Client) Proxy() *rpc.Proxy { return c.proxy }

func (c *Client) summary(ctx context.Context, method string, args ...any) (*Summary, error) {
	var summary *Summary
	if err := c.proxy.Call(ctx, method, &summary, args...); err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *Client) Open(ctx context.Context, name string, options OpenOptions) (*Summary, error) {
	return c.summary(ctx, "open", name, options)
}

func (c *Client) OpenDashboard(ctx context.Context, meta Metadata) (*Summary, error) {
	return c.summary(ctx, "openDashboard", meta)
}

func (c *Client) HideDashboard(ctx context.Context) error {
	return c.proxy.Call(ctx, "hideDashboard", nil)
}

func (c *Client) CloseDashboard(ctx context.Context) error {
	return c.proxy.Call(ctx, "closeDashboard", nil)
}

func (c *Client) OpenDialog(ctx context.Context, name string, props DialogProps) (*Summary, error) {
	return c.summary(ctx, "openDialog", name, props)
}

func (c *Client) OpenEditor(ctx context.Context, workspace string, options EditorOptions) (*Summary, error) {
	return c.summary(ctx, "openEditor", workspace, options)
}

// Close closes window id and decodes its result into result, which may
// be nil.
func (c *Client) Close(ctx context.Context, id uint32, result any) error {
	return c.proxy.Call(ctx, "close", result, id)
}

// CloseParent closes window id and its parent and decodes the parent's
// result into result, which may be nil.
func (c *Client) CloseParent(ctx context.Context, id uint32, result any) error {
	return c.proxy.Call(ctx, "closeParent", result, id)
}

func (c *Client) Minimize(ctx context.Context, id uint32) error {
	return c.proxy.Call(ctx, "minimize", nil, id)
}

func (c *Client) Reload(ctx context.Context, id uint32) error {
	return c.proxy.Call(ctx, "reload", nil, id)
}

func (c *Client) Show(ctx context.Context, id uint32) error {
	return c.proxy.Call(ctx, "show", nil, id)
}

func (c *Client) Hide(ctx context.Context, id uint32) error {
	return c.proxy.Call(ctx, "hide", nil, id)
}

func (c *Client) Focus(ctx context.Context, id uint32) error {
	return c.proxy.Call(ctx, "focus", nil, id)
}

func (c *Client) Resize(ctx context.Context, id uint32, options ResizeOptions) error {
	return c.proxy.Call(ctx, "resize", nil, id, options)
}

func (c *Client) SetResult(ctx context.Context, id uint32, result any) error {
	return c.proxy.Call(ctx, "setResult", nil, id, result)
}

func (c *Client) GetOneByName(ctx context.Context, name string) (*Summary, error) {
	return c.summary(ctx, "getOneByName", name)
}

// GetOneIDByName returns 0 and false when no window is named name.
func (c *Client) GetOneIDByName(ctx context.Context, name string) (uint32, bool, error) {
	var id *uint32
	if err := c.proxy.Call(ctx, "getOneIdByName", &id, name); err != nil {
		return 0, false, err
	}
	if id == nil {
		return 0, false, nil
	}
	return *id, true, nil
}

func (c *Client) GetAllByName(ctx context.Context, name string) ([]Summary, error) {
	var summaries []Summary
	err := c.proxy.Call(ctx, "getAllByName", &summaries, name)
	return summaries, err
}

func (c *Client) RecentlyFocused(ctx context.Context) (*Summary, error) {
	return c.summary(ctx, "recentlyFocusWindow")
}

func (c *Client) RecentlyEditor(ctx context.Context) (*Summary, error) {
	return c.summary(ctx, "recentlyEditorWindow")
}

func (c *Client) IsLastEditor(ctx context.Context, id uint32) (bool, error) {
	var last bool
	err := c.proxy.Call(ctx, "isLastEditor", &last, id)
	return last, err
}

func (c *Client) WorkspaceOwner(ctx context.Context, path string) (*Summary, error) {
	return c.summary(ctx, "workspaceOwner", path)
}

func (c *Client) AddGoto(ctx context.Context, location string) error {
	return c.proxy.Call(ctx, "addGoto", nil, location)
}

func (c *Client) AddWorkspace(ctx context.Context, workspace string) error {
	return c.proxy.Call(ctx, "addWorkspace", nil, workspace)
}
