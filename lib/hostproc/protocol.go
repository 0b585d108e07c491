// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package hostproc

import "github.com/casement-foundation/casement/lib/window"

// Control-plane channels between the platform and a host.
const (
	// ChannelInit carries one InitFrame, controller to host, right
	// after the host attaches.
	ChannelInit = "host:init"

	// ChannelControl carries (op, ControlArgs), controller to host.
	ChannelControl = "host:control"

	// ChannelState carries one StateReport, host to controller.
	ChannelState = "host:state"

	// ChannelCloseRequest is sent by a host when the user asks to
	// close its window. The platform honors it only for closable
	// windows.
	ChannelCloseRequest = "host:close-request"
)

// Control operations.
const (
	OpShow        = "show"
	OpHide        = "hide"
	OpBlur        = "blur"
	OpMinimize    = "minimize"
	OpRestore     = "restore"
	OpReload      = "reload"
	OpClose       = "close"
	OpSetClosable = "set-closable"
	OpSetSize     = "set-size"
)

// Environment variables a launched host reads.
const (
	EnvWindowID   = "CASEMENT_WINDOW_ID"
	EnvSocket     = "CASEMENT_SOCKET"
	EnvWindowName = "CASEMENT_WINDOW_NAME"
	EnvMetadata   = "CASEMENT_WINDOW_METADATA"
)

// InitFrame tells a host what window it is.
type InitFrame struct {
	Name         string              `cbor:"name"`
	Props        window.Props        `cbor:"props"`
	Capabilities window.Capabilities `cbor:"capabilities"`
	Metadata     window.Metadata     `cbor:"meta,omitempty"`
	Overrides    map[string]any      `cbor:"overrides,omitempty"`
}

// ControlArgs are the operands of a control operation.
type ControlArgs struct {
	Closable bool `cbor:"closable,omitempty"`
	Width    int  `cbor:"width,omitempty"`
	Height   int  `cbor:"height,omitempty"`
}

// StateReport is a host's view of its window.
type StateReport struct {
	Visible   bool `cbor:"visible"`
	Focused   bool `cbor:"focused"`
	Minimized bool `cbor:"minimized"`
	Closable  bool `cbor:"closable"`
	Width     int  `cbor:"width"`
	Height    int  `cbor:"height"`
	Reloads   int  `cbor:"reloads,omitempty"`
}
