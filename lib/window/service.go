// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/event"
)

// Events pushed to windows by the coordinator.
const (
	EventMetadata         = "metadata"
	EventDashboardMessage = "dashboard-message"
	EventOpenFile         = "open-file"
)

// DefaultWorkspaceSuffix marks workspace files, which open as a
// workspace rather than as a single file.
const DefaultWorkspaceSuffix = ".casement-workspace"

// Emitter pushes events to windows. [event.Bus] implements it.
type Emitter interface {
	Emit(name string, payload any, condition event.Condition)
}

// WorkspaceRecorder remembers opened workspaces. recent.Service
// implements it.
type WorkspaceRecorder interface {
	Add(ctx context.Context, workspace string) error
}

// Config configures a Service.
type Config struct {
	Platform Platform

	// Registry holds the records. Share it with a Resolver so event
	// conditions see the same windows.
	Registry *Registry

	Events Emitter

	// Presets defaults to DefaultPresets.
	Presets Presets

	// Clock drives show timeouts. Defaults to the real clock.
	Clock clock.Clock

	// UserHome is injected into every window's metadata.
	UserHome string

	// WorkspaceSuffix defaults to DefaultWorkspaceSuffix.
	WorkspaceSuffix string

	// Recent, when set, records every workspace an editor opens.
	Recent WorkspaceRecorder

	Logger *slog.Logger
}

// Service is the window lifecycle coordinator.
type Service struct {
	platform Platform
	registry *Registry
	events   Emitter
	presets  Presets
	clock    clock.Clock
	userHome string
	suffix   string
	recent   WorkspaceRecorder
	logger   *slog.Logger

	// singletons collapses concurrent opens of one singleton name
	// into a single native window.
	singletons singleflight.Group

	queueMu    sync.Mutex
	gotos      orderedSet
	workspaces orderedSet
}

// NewService creates a coordinator.
func NewService(config Config) *Service {
	if config.Registry == nil {
		config.Registry = NewRegistry()
	}
	if config.Presets == nil {
		config.Presets = DefaultPresets()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.WorkspaceSuffix == "" {
		config.WorkspaceSuffix = DefaultWorkspaceSuffix
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Service{
		platform: config.Platform,
		registry: config.Registry,
		events:   config.Events,
		presets:  config.Presets,
		clock:    config.Clock,
		userHome: config.UserHome,
		suffix:   config.WorkspaceSuffix,
		recent:   config.Recent,
		logger:   config.Logger,
	}
}

// Registry returns the registry the service maintains.
func (s *Service) Registry() *Registry { return s.registry }

// OpenOptions are the caller's inputs to Open.
type OpenOptions struct {
	Meta      Metadata       `cbor:"meta,omitempty"`
	Props     Props          `cbor:"props,omitempty"`
	Overrides map[string]any `cbor:"nativeWindowOverrides,omitempty"`
}

// Open opens a window named name. For singleton names an existing
// window is shown, sent the new metadata as a "metadata" event, and
// returned instead of creating a second native window. Creation waits
// for the platform to become ready.
func (s *Service) Open(ctx context.Context, name string, options OpenOptions) (*Record, error) {
	return s.open(ctx, name, options, "")
}

func (s *Service) open(ctx context.Context, name string, options OpenOptions, workspace string) (*Record, error) {
	props := s.presets.Resolve(name, options.Props)
	meta := maps.Clone(options.Meta)
	if meta == nil {
		meta = make(Metadata)
	}
	meta["name"] = name
	meta["userHome"] = s.userHome
	meta["windowStartTime"] = strconv.FormatInt(s.clock.Now().UnixMilli(), 10)

	if !props.IsSingleton() {
		return s.create(ctx, name, props, meta, options.Overrides, workspace)
	}

	if existing, err := s.reuseSingleton(ctx, name, meta); existing != nil || err != nil {
		return existing, err
	}
	// The flight is shared by every concurrent opener and ignores any
	// one caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ran := false
	flight := s.singletons.DoChan(name, func() (any, error) {
		ran = true
		if existing, err := s.reuseSingleton(flightCtx, name, meta); existing != nil || err != nil {
			return existing, err
		}
		return s.create(flightCtx, name, props, meta, options.Overrides, workspace)
	})
	select {
	case result := <-flight:
		if result.Err != nil {
			return nil, result.Err
		}
		record := result.Val.(*Record)
		if !ran {
			s.notifySingleton(record, meta)
		}
		return record, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("opening window %s: %w", name, ctx.Err())
	}
}

// reuseSingleton returns the live singleton named name after showing it
// and pushing meta. A singleton that is already closing is waited out
// so a fresh one can replace it.
func (s *Service) reuseSingleton(ctx context.Context, name string, meta Metadata) (*Record, error) {
	existing, ok := s.registry.OneByName(name)
	if !ok {
		return nil, nil
	}
	if existing.State() >= StateClosing {
		select {
		case <-existing.Closed():
			return nil, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("opening window %s: %w", name, ctx.Err())
		}
	}
	s.notifySingleton(existing, meta)
	return existing, nil
}

// notifySingleton shows a reused singleton and pushes the opener's
// metadata to it.
func (s *Service) notifySingleton(record *Record, meta Metadata) {
	record.show()
	s.events.Emit(EventMetadata, meta, event.Condition{WindowID: record.ID()})
	s.logger.Debug("reusing singleton window", "name", record.Name(), "window_id", record.ID())
}

func (s *Service) create(ctx context.Context, name string, props Props, meta Metadata, overrides map[string]any, workspace string) (*Record, error) {
	select {
	case <-s.platform.Ready():
	default:
		s.logger.Debug("waiting for platform before opening window", "name", name)
		select {
		case <-s.platform.Ready():
		case <-ctx.Done():
			return nil, fmt.Errorf("opening window %s: %w", name, ctx.Err())
		}
	}

	native, err := s.platform.Create(ctx, CreateOptions{
		Name:         name,
		Props:        props,
		Capabilities: CapabilitiesFor(props),
		Metadata:     meta,
		Overrides:    overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("opening window %s: %w", name, err)
	}

	record := newRecord(native, name, props, meta, workspace)
	s.registry.add(record)
	native.OnClosing(record.markClosing)
	native.OnClosed(func() { s.closed(record) })

	if !props.IsShown() && props.TimeoutMillis > 0 {
		timeout := time.Duration(props.TimeoutMillis) * time.Millisecond
		record.setShowTimer(s.clock.AfterFunc(timeout, record.show))
	}

	s.logger.Info("window opened",
		"name", name,
		"window_id", record.ID(),
		"parent_id", props.ParentID,
		"shown", props.IsShown(),
	)
	return record, nil
}

// closed runs when the platform reports the native window gone: the
// record leaves the registry and its children are closed.
func (s *Service) closed(record *Record) {
	if !record.markClosed() {
		return
	}
	s.registry.remove(record)
	s.logger.Info("window closed", "name", record.Name(), "window_id", record.ID())

	for _, child := range s.registry.Children(record.ID()) {
		s.logger.Debug("closing child of closed window",
			"window_id", child.ID(),
			"parent_id", record.ID(),
		)
		child.close()
	}
}

// Close closes window id, forcing it closable first, and waits until
// the platform reports it closed. Returns the window's result; an
// unknown id returns nil.
func (s *Service) Close(ctx context.Context, id uint32) (any, error) {
	record, ok := s.registry.Get(id)
	if !ok {
		return nil, nil
	}
	record.close()
	return record.WaitClosed(ctx)
}

// CloseParent closes window id together with its parent and waits for
// the parent to close, returning the parent's result. A window without
// a live parent is left alone and nil is returned.
func (s *Service) CloseParent(ctx context.Context, id uint32) (any, error) {
	record, ok := s.registry.Get(id)
	if !ok || record.ParentID() == 0 {
		return nil, nil
	}
	parent, ok := s.registry.Get(record.ParentID())
	if !ok {
		return nil, nil
	}
	record.close()
	parent.close()
	return parent.WaitClosed(ctx)
}

// Show shows window id.
func (s *Service) Show(id uint32) {
	if record, ok := s.registry.Get(id); ok {
		record.show()
	}
}

// Hide blurs and hides window id.
func (s *Service) Hide(id uint32) {
	if record, ok := s.registry.Get(id); ok {
		record.hide()
	}
}

// Focus restores window id if minimized and shows it.
func (s *Service) Focus(id uint32) {
	if record, ok := s.registry.Get(id); ok {
		record.restore()
		record.show()
	}
}

// Minimize minimizes window id.
func (s *Service) Minimize(id uint32) {
	if record, ok := s.registry.Get(id); ok {
		record.minimize()
	}
}

// Reload reloads window id's content.
func (s *Service) Reload(id uint32) {
	if record, ok := s.registry.Get(id); ok {
		record.reload()
	}
}

// ResizeOptions gives the new size; zero keeps the current value.
type ResizeOptions struct {
	Width  int `cbor:"width,omitempty"`
	Height int `cbor:"height,omitempty"`
}

// Resize resizes window id.
func (s *Service) Resize(id uint32, options ResizeOptions) {
	if record, ok := s.registry.Get(id); ok {
		record.resize(options.Width, options.Height)
	}
}

// SetResult stores the value Close reports for window id.
func (s *Service) SetResult(id uint32, result any) {
	s.logger.Debug("window result set", "window_id", id)
	if record, ok := s.registry.Get(id); ok {
		record.SetResult(result)
	}
}

// GetOneByName returns the oldest live window named name, or nil.
func (s *Service) GetOneByName(name string) *Record {
	record, _ := s.registry.OneByName(name)
	return record
}

// GetOneIDByName returns the id of the oldest live window named name.
func (s *Service) GetOneIDByName(name string) (uint32, bool) {
	record, ok := s.registry.OneByName(name)
	if !ok {
		return 0, false
	}
	return record.ID(), true
}

// GetAllByName returns every live window named name.
func (s *Service) GetAllByName(name string) []*Record {
	return s.registry.AllByName(name)
}

// RecentlyFocused returns the focused window's record, or nil.
func (s *Service) RecentlyFocused() *Record {
	id, ok := s.platform.Focused()
	if !ok {
		return nil
	}
	record, _ := s.registry.Get(id)
	return record
}

// RecentlyUsed returns the focused window if it is named name, else the
// oldest live window named name, else nil.
func (s *Service) RecentlyUsed(name string) *Record {
	if focused := s.RecentlyFocused(); focused != nil && focused.Name() == name {
		return focused
	}
	return s.GetOneByName(name)
}

// IsLastEditor reports whether id is the only live editor window.
func (s *Service) IsLastEditor(id uint32) bool {
	editors := s.registry.AllByName(NameEditor)
	return len(editors) == 1 && editors[0].ID() == id
}

// OpenDashboard shows the dashboard, opening it if needed. An existing
// dashboard receives meta["message"] as a "dashboard-message" event.
func (s *Service) OpenDashboard(ctx context.Context, meta Metadata) (*Record, error) {
	if dashboard := s.GetOneByName(NameDashboard); dashboard != nil && dashboard.State() != StateClosing {
		dashboard.show()
		s.events.Emit(EventDashboardMessage, map[string]any{"message": meta["message"]},
			event.Condition{WindowID: dashboard.ID()})
		return dashboard, nil
	}
	return s.Open(ctx, NameDashboard, OpenOptions{Meta: meta})
}

// HideDashboard hides the dashboard if it is open.
func (s *Service) HideDashboard() {
	if dashboard := s.GetOneByName(NameDashboard); dashboard != nil {
		dashboard.hide()
	}
}

// CloseDashboard closes the dashboard if it is open and waits for it.
func (s *Service) CloseDashboard(ctx context.Context) (any, error) {
	dashboard := s.GetOneByName(NameDashboard)
	if dashboard == nil {
		return nil, nil
	}
	return s.Close(ctx, dashboard.ID())
}

// DialogProps configure a dialog window.
type DialogProps struct {
	ParentID uint32            `cbor:"parentId,omitempty"`
	Modal    bool              `cbor:"modal,omitempty"`
	Payload  map[string]string `cbor:"payload,omitempty"`
}

// OpenDialog opens window name as a dialog of props.ParentID. The
// payload reaches the dialog as metadata.
func (s *Service) OpenDialog(ctx context.Context, name string, props DialogProps) (*Record, error) {
	options := OpenOptions{
		Props: Props{ParentID: props.ParentID, Modal: Bool(props.Modal)},
	}
	if props.Payload != nil {
		options.Meta = Metadata{"payload": props.Payload}
	}
	return s.Open(ctx, name, options)
}
