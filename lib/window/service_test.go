// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package window_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/event"
	"github.com/casement-foundation/casement/lib/testutil"
	"github.com/casement-foundation/casement/lib/window"
	"github.com/casement-foundation/casement/lib/window/windowtest"
)

const waitTimeout = 5 * time.Second

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recentRecorder struct {
	mu    sync.Mutex
	added []string
}

func (r *recentRecorder) Add(_ context.Context, workspace string) error {
	r.mu.Lock()
	r.added = append(r.added, workspace)
	r.mu.Unlock()
	return nil
}

func (r *recentRecorder) Added() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.added...)
}

type fixture struct {
	platform *windowtest.Platform
	events   *windowtest.Emitter
	clock    *clock.FakeClock
	recent   *recentRecorder
	service  *window.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		platform: windowtest.NewPlatform(true),
		events:   &windowtest.Emitter{},
		clock:    clock.Fake(epoch),
		recent:   &recentRecorder{},
	}
	f.service = window.NewService(window.Config{
		Platform: f.platform,
		Events:   f.events,
		Clock:    f.clock,
		UserHome: "/home/ada",
		Recent:   f.recent,
		Logger:   testutil.Logger(),
	})
	return f
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

func (f *fixture) open(t *testing.T, name string, options window.OpenOptions) *window.Record {
	t.Helper()
	record, err := f.service.Open(testContext(t), name, options)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	return record
}

func TestOpenInjectsMetadata(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, window.NameDefault, window.OpenOptions{
		Meta: window.Metadata{"projectId": "p1"},
	})

	meta := record.Metadata()
	want := map[string]any{
		"name":            window.NameDefault,
		"userHome":        "/home/ada",
		"windowStartTime": strconv.FormatInt(epoch.UnixMilli(), 10),
		"projectId":       "p1",
	}
	for key, value := range want {
		if meta[key] != value {
			t.Errorf("meta[%q] = %v, want %v", key, meta[key], value)
		}
	}

	created := f.platform.Created()
	if len(created) != 1 {
		t.Fatalf("created %d windows, want 1", len(created))
	}
	if created[0].Metadata["userHome"] != "/home/ada" {
		t.Error("platform did not receive the injected metadata")
	}
	if created[0].Capabilities != (window.Capabilities{}) {
		t.Errorf("default window capabilities = %+v, want the simple bundle", created[0].Capabilities)
	}
	if record.State() != window.StateShown {
		t.Errorf("state = %v, want shown", record.State())
	}
}

func TestSingletonReusesWindow(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, window.NameDashboard, window.OpenOptions{})
	f.service.Hide(first.ID())

	second := f.open(t, window.NameDashboard, window.OpenOptions{Meta: window.Metadata{"tab": "recent"}})
	if second != first {
		t.Fatalf("second open returned window %d, want %d", second.ID(), first.ID())
	}
	if n := len(f.platform.Created()); n != 1 {
		t.Fatalf("created %d native windows, want 1", n)
	}
	if !f.platform.Window(first.ID()).Visible() {
		t.Error("reused singleton was not shown")
	}

	emitted := f.events.Events(window.EventMetadata)
	if len(emitted) != 1 {
		t.Fatalf("got %d metadata events, want 1", len(emitted))
	}
	if emitted[0].Condition != (event.Condition{WindowID: first.ID()}) {
		t.Errorf("metadata condition = %+v", emitted[0].Condition)
	}
	if meta := emitted[0].Payload.(window.Metadata); meta["tab"] != "recent" || meta["name"] != window.NameDashboard {
		t.Errorf("metadata payload = %v", meta)
	}
}

func TestSingletonConcurrentOpens(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.platform.OnCreate(func(window.CreateOptions) { <-gate })

	const openers = 8
	results := make(chan *window.Record, openers)
	for range openers {
		go func() {
			record, err := f.service.Open(testContext(t), window.NameDashboard, window.OpenOptions{})
			if err != nil {
				t.Errorf("Open: %v", err)
			}
			results <- record
		}()
	}
	close(gate)

	first := testutil.RequireReceive(t, results, waitTimeout)
	for range openers - 1 {
		if record := testutil.RequireReceive(t, results, waitTimeout); record != first {
			t.Fatalf("concurrent opens produced windows %d and %d", first.ID(), record.ID())
		}
	}
	if n := len(f.platform.Created()); n != 1 {
		t.Fatalf("created %d native windows, want 1", n)
	}
	// Every opener but the creator is a reuse and gets its own event.
	if n := len(f.events.Events(window.EventMetadata)); n != openers-1 {
		t.Fatalf("got %d metadata events, want %d", n, openers-1)
	}
}

// blockCreates makes Create wait for the returned release
// function and closes entered once it is waiting.
func blockCreates(f *fixture) (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	inside := make(chan struct{})
	var once sync.Once
	f.platform.OnCreate(func(window.CreateOptions) {
		once.Do(func() { close(inside) })
		<-gate
	})
	return inside, func() { close(gate) }
}

func TestSingletonJoinerMetadataDelivered(t *testing.T) {
	f := newFixture(t)
	entered, release := blockCreates(f)

	firstDone := make(chan *window.Record, 1)
	go func() {
		record, err := f.service.Open(testContext(t), window.NameDashboard,
			window.OpenOptions{Meta: window.Metadata{"msg": "first"}})
		if err != nil {
			t.Errorf("first Open: %v", err)
		}
		firstDone <- record
	}()
	testutil.RequireClosed(t, entered, waitTimeout, "first open never reached Create")

	secondDone := make(chan *window.Record, 1)
	go func() {
		record, err := f.service.Open(testContext(t), window.NameDashboard,
			window.OpenOptions{Meta: window.Metadata{"msg": "second"}})
		if err != nil {
			t.Errorf("second Open: %v", err)
		}
		secondDone <- record
	}()
	time.Sleep(20 * time.Millisecond)
	release()

	first := testutil.RequireReceive(t, firstDone, waitTimeout)
	second := testutil.RequireReceive(t, secondDone, waitTimeout)
	if first == nil || second != first {
		t.Fatalf("second open got a different window")
	}
	emitted := f.events.Events(window.EventMetadata)
	if len(emitted) != 1 {
		t.Fatalf("got %d metadata events, want 1", len(emitted))
	}
	if emitted[0].Condition != (event.Condition{WindowID: first.ID()}) {
		t.Errorf("metadata condition = %+v", emitted[0].Condition)
	}
	if meta := emitted[0].Payload.(window.Metadata); meta["msg"] != "second" {
		t.Errorf("metadata payload = %v, want the second opener's", meta)
	}
}

func TestSingletonJoinerSurvivesCreatorCancel(t *testing.T) {
	f := newFixture(t)
	entered, release := blockCreates(f)

	creatorCtx, cancelCreator := context.WithCancel(context.Background())
	defer cancelCreator()
	creatorErr := make(chan error, 1)
	go func() {
		_, err := f.service.Open(creatorCtx, window.NameDashboard, window.OpenOptions{})
		creatorErr <- err
	}()
	testutil.RequireClosed(t, entered, waitTimeout, "first open never reached Create")

	joined := make(chan *window.Record, 1)
	go func() {
		record, err := f.service.Open(testContext(t), window.NameDashboard, window.OpenOptions{})
		if err != nil {
			t.Errorf("joining Open: %v", err)
		}
		joined <- record
	}()
	time.Sleep(20 * time.Millisecond)

	cancelCreator()
	if err := testutil.RequireReceive(t, creatorErr, waitTimeout); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled opener error = %v, want context.Canceled", err)
	}
	release()

	record := testutil.RequireReceive(t, joined, waitTimeout)
	if record == nil || record.State() >= window.StateClosing {
		t.Fatalf("joining opener got %v, want the live dashboard", record)
	}
	if n := len(f.platform.Created()); n != 1 {
		t.Fatalf("created %d native windows, want 1", n)
	}
}

func TestNonSingletonOpensNewWindows(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, window.NameDefault, window.OpenOptions{})
	b := f.open(t, window.NameDefault, window.OpenOptions{})
	if a.ID() == b.ID() {
		t.Fatal("non-singleton opens shared a window")
	}
	if got := len(f.service.GetAllByName(window.NameDefault)); got != 2 {
		t.Fatalf("GetAllByName = %d records, want 2", got)
	}
	if id, ok := f.service.GetOneIDByName(window.NameDefault); !ok || id != a.ID() {
		t.Errorf("GetOneIDByName = %d, %v, want oldest %d", id, ok, a.ID())
	}
	if _, ok := f.service.GetOneIDByName("missing"); ok {
		t.Error("GetOneIDByName found a window that does not exist")
	}
}

func TestOpenWaitsForPlatformReady(t *testing.T) {
	platform := windowtest.NewPlatform(false)
	service := window.NewService(window.Config{
		Platform: platform,
		Events:   &windowtest.Emitter{},
		Logger:   testutil.Logger(),
	})

	opened := make(chan *window.Record, 1)
	go func() {
		record, err := service.Open(testContext(t), window.NameDefault, window.OpenOptions{})
		if err != nil {
			t.Errorf("Open: %v", err)
		}
		opened <- record
	}()

	select {
	case <-opened:
		t.Fatal("Open returned before the platform was ready")
	case <-time.After(50 * time.Millisecond):
	}
	if n := len(platform.Created()); n != 0 {
		t.Fatalf("created %d windows before ready", n)
	}

	platform.MarkReady()
	if record := testutil.RequireReceive(t, opened, waitTimeout); record == nil {
		t.Fatal("Open returned no record")
	}
}

func TestOpenNotReadyHonorsContext(t *testing.T) {
	service := window.NewService(window.Config{
		Platform: windowtest.NewPlatform(false),
		Events:   &windowtest.Emitter{},
		Logger:   testutil.Logger(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := service.Open(ctx, window.NameDefault, window.OpenOptions{}); err == nil {
		t.Fatal("Open succeeded on a platform that never became ready")
	}
	if service.Registry().Len() != 0 {
		t.Fatal("failed open left a record behind")
	}
}

func TestShowTimeout(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, "settings", window.OpenOptions{
		Props: window.Props{Show: window.Bool(false), TimeoutMillis: 500},
	})
	native := f.platform.Window(record.ID())
	if native.Visible() || record.State() != window.StateLoading {
		t.Fatalf("hidden window starts visible=%v state=%v", native.Visible(), record.State())
	}
	if f.clock.PendingCount() != 1 {
		t.Fatalf("pending timers = %d, want 1", f.clock.PendingCount())
	}

	f.clock.Advance(499 * time.Millisecond)
	if native.Visible() {
		t.Fatal("window shown before the timeout")
	}
	f.clock.Advance(time.Millisecond)
	if !native.Visible() || record.State() != window.StateShown {
		t.Fatalf("after timeout visible=%v state=%v", native.Visible(), record.State())
	}
}

func TestShowTimeoutStoppedByClose(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, "settings", window.OpenOptions{
		Props: window.Props{Show: window.Bool(false), TimeoutMillis: 500},
	})
	if _, err := f.service.Close(testContext(t), record.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.clock.PendingCount() != 0 {
		t.Fatalf("pending timers after close = %d, want 0", f.clock.PendingCount())
	}
}

func TestCloseReturnsResultAfterClosing(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, window.NameDefault, window.OpenOptions{})
	f.service.SetResult(record.ID(), "accepted")
	f.platform.HoldCloses(true)

	type closeResult struct {
		value any
		err   error
	}
	done := make(chan closeResult, 1)
	go func() {
		value, err := f.service.Close(testContext(t), record.ID())
		done <- closeResult{value, err}
	}()

	testutil.Eventually(t, waitTimeout, func() bool { return record.State() == window.StateClosing })
	if _, ok := f.service.Registry().Get(record.ID()); !ok {
		t.Fatal("closing window left the registry before the platform reported it closed")
	}

	f.platform.Window(record.ID()).Release()
	got := testutil.RequireReceive(t, done, waitTimeout)
	if got.err != nil || got.value != "accepted" {
		t.Fatalf("Close = %v, %v, want accepted", got.value, got.err)
	}
	if record.State() != window.StateClosed {
		t.Errorf("state = %v, want closed", record.State())
	}
	if f.service.Registry().Len() != 0 {
		t.Error("closed window is still registered")
	}
}

func TestCloseForcesClosable(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, window.NameDefault, window.OpenOptions{
		Props: window.Props{Closable: window.Bool(false)},
	})
	native := f.platform.Window(record.ID())

	native.Close()
	if native.Destroyed() {
		t.Fatal("non-closable window closed on a plain close")
	}
	if _, err := f.service.Close(testContext(t), record.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !native.Destroyed() {
		t.Fatal("Close did not close a non-closable window")
	}
}

func TestCloseUnknownWindow(t *testing.T) {
	f := newFixture(t)
	value, err := f.service.Close(testContext(t), 42)
	if value != nil || err != nil {
		t.Fatalf("Close(42) = %v, %v, want nil, nil", value, err)
	}
}

func TestCloseParentClosesBoth(t *testing.T) {
	f := newFixture(t)
	parent := f.open(t, window.NameDefault, window.OpenOptions{})
	child := f.open(t, "picker", window.OpenOptions{Props: window.Props{ParentID: parent.ID()}})
	sibling := f.open(t, "picker", window.OpenOptions{Props: window.Props{ParentID: parent.ID()}})
	f.service.SetResult(parent.ID(), "parent-result")
	f.service.SetResult(child.ID(), "child-result")

	value, err := f.service.CloseParent(testContext(t), child.ID())
	if err != nil {
		t.Fatalf("CloseParent: %v", err)
	}
	if value != "parent-result" {
		t.Errorf("CloseParent = %v, want the parent's result", value)
	}
	for _, record := range []*window.Record{parent, child, sibling} {
		testutil.RequireClosed(t, record.Closed(), waitTimeout, "window %d", record.ID())
	}
	testutil.Eventually(t, waitTimeout, func() bool { return f.service.Registry().Len() == 0 })
}

func TestCloseParentWithoutParent(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, window.NameDefault, window.OpenOptions{})
	value, err := f.service.CloseParent(testContext(t), record.ID())
	if value != nil || err != nil {
		t.Fatalf("CloseParent = %v, %v, want nil, nil", value, err)
	}
	if record.State() != window.StateShown {
		t.Fatalf("top-level window state = %v after CloseParent", record.State())
	}
}

func TestExternalCloseCascadesToChildren(t *testing.T) {
	f := newFixture(t)
	parent := f.open(t, window.NameDefault, window.OpenOptions{})
	child := f.open(t, "picker", window.OpenOptions{Props: window.Props{ParentID: parent.ID()}})
	other := f.open(t, window.NameDefault, window.OpenOptions{})

	f.platform.Window(parent.ID()).Destroy()
	testutil.RequireClosed(t, child.Closed(), waitTimeout)
	if other.State() == window.StateClosed {
		t.Fatal("unrelated window closed with the parent")
	}
}

func TestClosingSingletonIsReplaced(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, window.NameDashboard, window.OpenOptions{})
	f.platform.HoldCloses(true)
	go f.service.Close(testContext(t), first.ID())
	testutil.Eventually(t, waitTimeout, func() bool { return first.State() == window.StateClosing })

	opened := make(chan *window.Record, 1)
	go func() {
		record, err := f.service.Open(testContext(t), window.NameDashboard, window.OpenOptions{})
		if err != nil {
			t.Errorf("Open: %v", err)
		}
		opened <- record
	}()
	select {
	case record := <-opened:
		t.Fatalf("Open returned window %d while the old singleton was closing", record.ID())
	case <-time.After(50 * time.Millisecond):
	}

	f.platform.Window(first.ID()).Release()
	second := testutil.RequireReceive(t, opened, waitTimeout)
	if second == nil || second.ID() == first.ID() {
		t.Fatal("closing singleton was not replaced by a new window")
	}
}

func TestRecentlyUsedAndLastEditor(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, window.NameEditor, window.OpenOptions{})
	second := f.open(t, window.NameEditor, window.OpenOptions{})
	other := f.open(t, window.NameDefault, window.OpenOptions{})

	f.platform.Focus(second.ID())
	if got := f.service.RecentlyUsed(window.NameEditor); got != second {
		t.Errorf("RecentlyUsed with editor focused = %v, want %d", got, second.ID())
	}
	f.platform.Focus(other.ID())
	if got := f.service.RecentlyUsed(window.NameEditor); got != first {
		t.Errorf("RecentlyUsed with non-editor focused = %v, want oldest %d", got, first.ID())
	}
	if got := f.service.RecentlyFocused(); got != other {
		t.Errorf("RecentlyFocused = %v, want %d", got, other.ID())
	}
	f.platform.Focus(0)
	if got := f.service.RecentlyFocused(); got != nil {
		t.Errorf("RecentlyFocused with nothing focused = %d", got.ID())
	}

	if f.service.IsLastEditor(first.ID()) {
		t.Error("IsLastEditor true with two editors open")
	}
	if _, err := f.service.Close(testContext(t), second.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.service.IsLastEditor(first.ID()) {
		t.Error("IsLastEditor false for the only editor")
	}
	if f.service.IsLastEditor(other.ID()) {
		t.Error("IsLastEditor true for a non-editor window")
	}
}

func TestOpenDashboardMessagesExisting(t *testing.T) {
	f := newFixture(t)
	dashboard, err := f.service.OpenDashboard(testContext(t), nil)
	if err != nil {
		t.Fatalf("OpenDashboard: %v", err)
	}
	f.service.HideDashboard()
	if f.platform.Window(dashboard.ID()).Visible() {
		t.Fatal("HideDashboard left the dashboard visible")
	}

	again, err := f.service.OpenDashboard(testContext(t), window.Metadata{"message": "workspace missing"})
	if err != nil {
		t.Fatalf("OpenDashboard: %v", err)
	}
	if again != dashboard {
		t.Fatal("OpenDashboard created a second dashboard")
	}
	emitted := f.events.Events(window.EventDashboardMessage)
	if len(emitted) != 1 {
		t.Fatalf("got %d dashboard messages, want 1", len(emitted))
	}
	if payload := emitted[0].Payload.(map[string]any); payload["message"] != "workspace missing" {
		t.Errorf("dashboard message payload = %v", payload)
	}

	if _, err := f.service.CloseDashboard(testContext(t)); err != nil {
		t.Fatalf("CloseDashboard: %v", err)
	}
	if f.service.GetOneByName(window.NameDashboard) != nil {
		t.Fatal("dashboard still registered after CloseDashboard")
	}
}

func TestOpenDialog(t *testing.T) {
	f := newFixture(t)
	parent := f.open(t, window.NameEditor, window.OpenOptions{})
	dialog, err := f.service.OpenDialog(testContext(t), "confirm", window.DialogProps{
		ParentID: parent.ID(),
		Modal:    true,
		Payload:  map[string]string{"question": "Discard changes?"},
	})
	if err != nil {
		t.Fatalf("OpenDialog: %v", err)
	}
	if dialog.ParentID() != parent.ID() {
		t.Errorf("dialog parent = %d, want %d", dialog.ParentID(), parent.ID())
	}
	if props := dialog.Props(); props.Modal == nil || !*props.Modal {
		t.Error("dialog is not modal")
	}
	payload, _ := dialog.Metadata()["payload"].(map[string]string)
	if payload["question"] != "Discard changes?" {
		t.Errorf("dialog payload = %v", dialog.Metadata()["payload"])
	}
}

func TestWindowControls(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, window.NameDefault, window.OpenOptions{})
	native := f.platform.Window(record.ID())

	f.service.Minimize(record.ID())
	if !native.IsMinimized() {
		t.Fatal("Minimize did not minimize")
	}
	f.service.Focus(record.ID())
	if native.IsMinimized() || !native.Visible() {
		t.Fatal("Focus did not restore and show")
	}

	f.service.Resize(record.ID(), window.ResizeOptions{Width: 640})
	if width, height := native.Size(); width != 640 || height != 800 {
		t.Errorf("size after width-only resize = %dx%d, want 640x800", width, height)
	}

	f.service.Reload(record.ID())
	if native.Reloads() != 1 {
		t.Errorf("reloads = %d, want 1", native.Reloads())
	}

	f.service.Hide(record.ID())
	if native.Visible() || record.State() != window.StateHidden {
		t.Errorf("after Hide visible=%v state=%v", native.Visible(), record.State())
	}
	f.service.Show(record.ID())
	if !native.Visible() || record.State() != window.StateShown {
		t.Errorf("after Show visible=%v state=%v", native.Visible(), record.State())
	}

	// Controls on unknown ids are ignored.
	f.service.Show(999)
	f.service.Resize(999, window.ResizeOptions{Width: 1})
}

func TestResolverIgnoresUnregisteredFocus(t *testing.T) {
	f := newFixture(t)
	record := f.open(t, window.NameDefault, window.OpenOptions{})
	resolver := window.NewResolver(f.service.Registry(), f.platform)

	f.platform.Focus(record.ID())
	if id, ok := resolver.FocusedWindow(); !ok || id != record.ID() {
		t.Fatalf("FocusedWindow = %d, %v", id, ok)
	}
	f.platform.Focus(77)
	if _, ok := resolver.FocusedWindow(); ok {
		t.Fatal("FocusedWindow reported a window the registry does not hold")
	}
	if !resolver.WindowExists(record.ID()) || resolver.WindowExists(77) {
		t.Fatal("WindowExists disagrees with the registry")
	}
}

func TestCreateFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.platform.FailCreates(windowtest.ErrCreateFailed)
	if _, err := f.service.Open(testContext(t), window.NameDashboard, window.OpenOptions{}); err == nil {
		t.Fatal("Open succeeded with a failing platform")
	}
	f.platform.FailCreates(nil)
	if f.service.Registry().Len() != 0 {
		t.Fatal("failed create registered a record")
	}
	f.open(t, window.NameDashboard, window.OpenOptions{})
}
