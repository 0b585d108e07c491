// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import "maps"

// Window types with a fixed capability bundle.
const (
	TypeSimple = "simple"
	TypeNormal = "normal"
	TypeOutput = "output"
)

// Well-known window names.
const (
	NameDefault   = "default"
	NameDashboard = "dashboard"
	NameEditor    = "editor"
)

// Props are the window properties a preset or caller can set. Unset
// fields (zero strings and numbers, nil booleans) inherit from the layer
// below when merged.
type Props struct {
	Title           string `yaml:"title,omitempty" cbor:"title,omitempty"`
	Modal           *bool  `yaml:"modal,omitempty" cbor:"modal,omitempty"`
	ParentID        uint32 `yaml:"-" cbor:"parentId,omitempty"`
	Preload         string `yaml:"preload,omitempty" cbor:"preload,omitempty"`
	Width           int    `yaml:"width,omitempty" cbor:"width,omitempty"`
	Height          int    `yaml:"height,omitempty" cbor:"height,omitempty"`
	MinWidth        int    `yaml:"min_width,omitempty" cbor:"minWidth,omitempty"`
	MinHeight       int    `yaml:"min_height,omitempty" cbor:"minHeight,omitempty"`
	MaxWidth        int    `yaml:"max_width,omitempty" cbor:"maxWidth,omitempty"`
	MaxHeight       int    `yaml:"max_height,omitempty" cbor:"maxHeight,omitempty"`
	Resizable       *bool  `yaml:"resizable,omitempty" cbor:"resizable,omitempty"`
	AlwaysOnTop     *bool  `yaml:"always_on_top,omitempty" cbor:"alwaysOnTop,omitempty"`
	Fullscreen      *bool  `yaml:"fullscreen,omitempty" cbor:"fullscreen,omitempty"`
	Singleton       *bool  `yaml:"singleton,omitempty" cbor:"singleton,omitempty"`
	Type            string `yaml:"type,omitempty" cbor:"type,omitempty"`
	Wait            *bool  `yaml:"wait,omitempty" cbor:"wait,omitempty"`
	Show            *bool  `yaml:"show,omitempty" cbor:"show,omitempty"`
	Closable        *bool  `yaml:"closable,omitempty" cbor:"closable,omitempty"`
	URL             string `yaml:"url,omitempty" cbor:"url,omitempty"`
	TimeoutMillis   int    `yaml:"timeout,omitempty" cbor:"timeout,omitempty"`
	TitleBarStyle   string `yaml:"title_bar_style,omitempty" cbor:"titleBarStyle,omitempty"`
	Transparent     *bool  `yaml:"transparent,omitempty" cbor:"transparent,omitempty"`
	Frame           *bool  `yaml:"frame,omitempty" cbor:"frame,omitempty"`
	BackgroundColor string `yaml:"background_color,omitempty" cbor:"backgroundColor,omitempty"`
}

// Bool returns a pointer to v, for setting optional Props fields.
func Bool(v bool) *bool { return &v }

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// IsSingleton reports whether at most one window of this kind may exist.
func (p Props) IsSingleton() bool { return boolOr(p.Singleton, false) }

// IsShown reports whether the window is shown as soon as it is created.
// Windows are shown unless a layer says otherwise.
func (p Props) IsShown() bool { return boolOr(p.Show, true) }

// IsClosable reports whether the user may close the window.
func (p Props) IsClosable() bool { return boolOr(p.Closable, true) }

// Merge returns p with every field set in over replacing p's value.
func (p Props) Merge(over Props) Props {
	merged := p
	mergeString(&merged.Title, over.Title)
	mergeBool(&merged.Modal, over.Modal)
	if over.ParentID != 0 {
		merged.ParentID = over.ParentID
	}
	mergeString(&merged.Preload, over.Preload)
	mergeInt(&merged.Width, over.Width)
	mergeInt(&merged.Height, over.Height)
	mergeInt(&merged.MinWidth, over.MinWidth)
	mergeInt(&merged.MinHeight, over.MinHeight)
	mergeInt(&merged.MaxWidth, over.MaxWidth)
	mergeInt(&merged.MaxHeight, over.MaxHeight)
	mergeBool(&merged.Resizable, over.Resizable)
	mergeBool(&merged.AlwaysOnTop, over.AlwaysOnTop)
	mergeBool(&merged.Fullscreen, over.Fullscreen)
	mergeBool(&merged.Singleton, over.Singleton)
	mergeString(&merged.Type, over.Type)
	mergeBool(&merged.Wait, over.Wait)
	mergeBool(&merged.Show, over.Show)
	mergeBool(&merged.Closable, over.Closable)
	mergeString(&merged.URL, over.URL)
	mergeInt(&merged.TimeoutMillis, over.TimeoutMillis)
	mergeString(&merged.TitleBarStyle, over.TitleBarStyle)
	mergeBool(&merged.Transparent, over.Transparent)
	mergeBool(&merged.Frame, over.Frame)
	mergeString(&merged.BackgroundColor, over.BackgroundColor)
	return merged
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeBool(dst **bool, v *bool) {
	if v != nil {
		copied := *v
		*dst = &copied
	}
}

// Capabilities is the set of window-manager affordances a window gets.
type Capabilities struct {
	Maximizable    bool `cbor:"maximizable"`
	Minimizable    bool `cbor:"minimizable"`
	Resizable      bool `cbor:"resizable"`
	Fullscreenable bool `cbor:"fullscreenable"`
}

var capabilityBundles = map[string]Capabilities{
	TypeSimple: {},
	TypeOutput: {},
	TypeNormal: {Maximizable: true, Minimizable: true, Resizable: true, Fullscreenable: true},
}

// CapabilitiesFor returns the bundle for p.Type (normal when unset or
// unknown). An explicit Resizable overrides the bundle's value.
func CapabilitiesFor(p Props) Capabilities {
	bundle, ok := capabilityBundles[p.Type]
	if !ok {
		bundle = capabilityBundles[TypeNormal]
	}
	bundle.Resizable = boolOr(p.Resizable, bundle.Resizable)
	return bundle
}

// Presets maps window names to their default props. The "default"
// preset applies to every window.
type Presets map[string]Props

// DefaultPresets returns the built-in presets.
func DefaultPresets() Presets {
	return Presets{
		NameDefault: {
			Title:           NameDefault,
			Width:           1200,
			Height:          800,
			Frame:           Bool(false),
			Type:            TypeSimple,
			Show:            Bool(true),
			BackgroundColor: "#2A3241",
			Transparent:     Bool(false),
		},
		NameDashboard: {
			Title:         NameDashboard,
			Width:         1200,
			Height:        800,
			Singleton:     Bool(true),
			Type:          TypeSimple,
			Show:          Bool(true),
			TimeoutMillis: 1000,
			TitleBarStyle: "hidden",
		},
		NameEditor: {
			Title:         NameEditor,
			Width:         1200,
			Height:        800,
			MinHeight:     760,
			MinWidth:      934,
			Type:          TypeNormal,
			TitleBarStyle: "hidden",
			Frame:         Bool(false),
			Show:          Bool(false),
		},
	}
}

// With returns a copy of p with overrides merged over the presets of
// the same name.
func (p Presets) With(overrides Presets) Presets {
	merged := maps.Clone(p)
	if merged == nil {
		merged = make(Presets)
	}
	for name, props := range overrides {
		merged[name] = merged[name].Merge(props)
	}
	return merged
}

// Resolve layers the default preset, the preset for name, and caller.
func (p Presets) Resolve(name string, caller Props) Props {
	return p[NameDefault].Merge(p[name]).Merge(caller)
}
