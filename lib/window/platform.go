// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import "context"

// Metadata is the free-form map handed to a window's UI-host at
// creation and pushed again on singleton reuse.
type Metadata map[string]any

// CreateOptions are the resolved options for one native window.
type CreateOptions struct {
	Name         string
	Props        Props
	Capabilities Capabilities
	Metadata     Metadata

	// Overrides are passed to the platform unchanged.
	Overrides map[string]any
}

// Platform creates native windows. Implementations must be safe for
// concurrent use.
type Platform interface {
	// Ready is closed once windows can be created.
	Ready() <-chan struct{}

	// Create allocates a native window. The window is visible on
	// return when options.Props.IsShown().
	Create(ctx context.Context, options CreateOptions) (NativeWindow, error)

	// Focused returns the id of the focused native window.
	Focused() (uint32, bool)
}

// NativeWindow is a platform window. Every method may be called after
// the window has been destroyed; callers check Destroyed first so they
// never act on a dead window.
type NativeWindow interface {
	// ID is assigned by the platform and never reused.
	ID() uint32

	Destroyed() bool

	Show()
	Hide()
	Blur()
	Minimize()
	Restore()
	IsMinimized() bool
	Reload()

	// Close asks the window to close. The close completes
	// asynchronously and is reported through OnClosed.
	Close()

	Closable() bool
	SetClosable(closable bool)

	Size() (width, height int)
	SetSize(width, height int)

	// OnClosing registers fn to run when a close begins, whoever
	// initiated it.
	OnClosing(fn func())

	// OnClosed registers fn to run once the window is destroyed. If
	// the window is already destroyed fn runs immediately.
	OnClosed(fn func())
}
