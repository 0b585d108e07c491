// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/casement-foundation/casement/lib/channel"
	"github.com/casement-foundation/casement/lib/testutil"
)

const waitTimeout = 5 * time.Second

type fixture struct {
	hub      *channel.Hub
	registry *Registry
	host     *channel.Conn
}

func newFixture(t *testing.T, windowID uint32) *fixture {
	t.Helper()
	hub := channel.NewHub("", testutil.Logger())
	registry := NewRegistry(hub, testutil.Logger())
	host, err := channel.Pipe(hub, windowID, testutil.Logger())
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	t.Cleanup(func() {
		host.Close()
		registry.Close()
		hub.Close()
	})
	return &fixture{hub: hub, registry: registry, host: host}
}

func echoService() Methods {
	return Methods{
		"greet": Func1(func(_ context.Context, x string) (string, error) {
			return x, nil
		}),
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestEchoRoundTrip(t *testing.T) {
	f := newFixture(t, 1)
	f.registry.Register("Echo", echoService())
	proxy := NewProxy(f.host, "Echo")

	var got string
	if err := proxy.Call(testContext(t), "greet", &got, "hi"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "hi" {
		t.Errorf("greet(hi) = %q, want hi", got)
	}
	if pending := proxy.Pending(); pending != 0 {
		t.Errorf("Pending() = %d after reply, want 0", pending)
	}
}

func TestUnknownMethodFailsWithNoHandler(t *testing.T) {
	f := newFixture(t, 1)
	called := false
	f.registry.Register("window", Methods{
		"open": Proc0(func(context.Context) error { called = true; return nil }),
	})
	proxy := NewProxy(f.host, "window")

	err := proxy.Call(testContext(t), "frobnicate", nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Call error = %v, want *RemoteError", err)
	}
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("errors.Is(err, ErrNoHandler) = false for %v", err)
	}
	if remote.Message != "no request handler for window.frobnicate" {
		t.Errorf("Message = %q", remote.Message)
	}
	if called {
		t.Error("unrelated handler ran")
	}
}

func TestHandlerErrorAndPanic(t *testing.T) {
	f := newFixture(t, 1)
	f.registry.Register("fail", Methods{
		"error": Proc0(func(context.Context) error { return errors.New("disk full") }),
		"panic": Proc0(func(context.Context) error { panic("boom") }),
		"ok":    Func0(func(context.Context) (int, error) { return 42, nil }),
	})
	proxy := NewProxy(f.host, "fail")
	ctx := testContext(t)

	err := proxy.Call(ctx, "error", nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "disk full" {
		t.Fatalf("error call = %v, want RemoteError disk full", err)
	}
	if remote.Service != "fail" || remote.Method != "error" {
		t.Errorf("RemoteError names %s.%s, want fail.error", remote.Service, remote.Method)
	}

	err = proxy.Call(ctx, "panic", nil)
	if !errors.As(err, &remote) || remote.Message != "boom" {
		t.Fatalf("panic call = %v, want RemoteError boom", err)
	}
	if !strings.Contains(remote.Stack, "goroutine") {
		t.Errorf("panic stack missing goroutine trace: %q", remote.Stack)
	}

	// The dispatch loop survives both failures.
	var n int
	if err := proxy.Call(ctx, "ok", &n); err != nil || n != 42 {
		t.Fatalf("ok call = (%d, %v), want 42", n, err)
	}
}

func TestReservedMethod(t *testing.T) {
	f := newFixture(t, 1)
	proxy := NewProxy(f.host, "Echo")
	if err := proxy.Call(testContext(t), "on", nil); !errors.Is(err, ErrReservedMethod) {
		t.Fatalf("Call(on) = %v, want ErrReservedMethod", err)
	}
}

func TestReRegisterReplacesImplementation(t *testing.T) {
	f := newFixture(t, 1)
	first := f.registry.Register("svc", Methods{
		"who": Func0(func(context.Context) (string, error) { return "first", nil }),
	})
	second := f.registry.Register("svc", Methods{
		"who": Func0(func(context.Context) (string, error) { return "second", nil }),
	})
	testutil.RequireClosed(t, first.Done(), waitTimeout, "first registration disposed")

	proxy := NewProxy(f.host, "svc")
	for range 5 {
		var who string
		if err := proxy.Call(testContext(t), "who", &who); err != nil {
			t.Fatalf("Call: %v", err)
		}
		if who != "second" {
			t.Fatalf("who = %q after re-registration, want second", who)
		}
	}
	if count := f.hub.ListenerCount(RequestChannel("svc")); count != 1 {
		t.Errorf("request listeners = %d, want 1", count)
	}

	// Disposing the stale registration leaves the live one alone.
	first.Dispose()
	if _, ok := f.registry.Lookup("svc"); !ok {
		t.Fatal("Lookup(svc) missing after disposing replaced registration")
	}
	second.Dispose()
	if _, ok := f.registry.Lookup("svc"); ok {
		t.Error("Lookup(svc) still present after Dispose")
	}
	if count := f.hub.ListenerCount(RequestChannel("svc")); count != 0 {
		t.Errorf("request listeners after dispose = %d, want 0", count)
	}
}

func TestReentrantHandler(t *testing.T) {
	f := newFixture(t, 1)
	innerCalled := make(chan struct{})
	f.registry.Register("loop", Methods{
		"inner": Proc0(func(context.Context) error {
			close(innerCalled)
			return nil
		}),
		"outer": Func0(func(ctx context.Context) (string, error) {
			// Completes only once a later request on the same
			// connection has been dispatched.
			select {
			case <-innerCalled:
				return "outer", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}),
	})
	proxy := NewProxy(f.host, "loop")
	ctx := testContext(t)

	outerDone := make(chan string, 1)
	go func() {
		var outer string
		if err := proxy.Call(ctx, "outer", &outer); err != nil {
			outer = "error: " + err.Error()
		}
		outerDone <- outer
	}()
	testutil.Eventually(t, waitTimeout, func() bool { return proxy.Pending() == 1 }, "outer pending")

	if err := proxy.Call(ctx, "inner", nil); err != nil {
		t.Fatalf("inner: %v", err)
	}
	if got := testutil.RequireReceive(t, outerDone, waitTimeout, "outer result"); got != "outer" {
		t.Errorf("outer = %q, want outer", got)
	}
}

func TestConcurrentCallsDoNotBlockEachOther(t *testing.T) {
	f := newFixture(t, 1)
	release := make(chan struct{})
	f.registry.Register("slow", Methods{
		"wait": Proc0(func(ctx context.Context) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		"fast": Func0(func(context.Context) (string, error) { return "fast", nil }),
	})
	proxy := NewProxy(f.host, "slow")
	ctx := testContext(t)

	slowDone := make(chan error, 1)
	go func() { slowDone <- proxy.Call(ctx, "wait", nil) }()

	var fast string
	if err := proxy.Call(ctx, "fast", &fast); err != nil || fast != "fast" {
		t.Fatalf("fast call = (%q, %v) while slow call pending", fast, err)
	}
	close(release)
	if err := testutil.RequireReceive(t, slowDone, waitTimeout, "slow call"); err != nil {
		t.Fatalf("slow call: %v", err)
	}
}

func TestForeignResponsesIgnored(t *testing.T) {
	f := newFixture(t, 1)
	requests := make(chan uint64, 1)
	var replier channel.Endpoint
	f.hub.On(RequestChannel("manual"), func(source channel.Endpoint, msg channel.Message) {
		var id uint64
		msg.Arg(1, &id)
		replier = source
		requests <- id
	})
	proxy := NewProxy(f.host, "manual")

	result := make(chan string, 1)
	go func() {
		var got string
		if err := proxy.Call(context.Background(), "get", &got); err != nil {
			result <- "error: " + err.Error()
			return
		}
		result <- got
	}()

	id := testutil.RequireReceive(t, requests, waitTimeout, "request")
	replier.Send(ResponseChannel("manual"), id+100, nil, "not yours")
	replier.Send(ResponseChannel("manual"), id, nil, "yours")

	if got := testutil.RequireReceive(t, result, waitTimeout, "call result"); got != "yours" {
		t.Errorf("result = %q, want yours", got)
	}
}

func TestRequestIDsStartAtZeroAndIncrease(t *testing.T) {
	f := newFixture(t, 1)
	ids := make(chan uint64, 3)
	f.hub.On(RequestChannel("ids"), func(source channel.Endpoint, msg channel.Message) {
		var id uint64
		msg.Arg(1, &id)
		ids <- id
		source.Send(ResponseChannel("ids"), id, nil, nil)
	})
	proxy := NewProxy(f.host, "ids")
	for range 3 {
		if err := proxy.Call(testContext(t), "tick", nil); err != nil {
			t.Fatalf("Call: %v", err)
		}
	}
	for want := range uint64(3) {
		if got := <-ids; got != want {
			t.Errorf("request id = %d, want %d", got, want)
		}
	}
}

func TestDestroyedHostLeavesCallPending(t *testing.T) {
	f := newFixture(t, 1)
	started := make(chan struct{})
	f.registry.Register("hang", Methods{
		"forever": Proc0(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	proxy := NewProxy(f.host, "hang")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- proxy.Call(ctx, "forever", nil) }()
	testutil.RequireClosed(t, started, waitTimeout, "handler started")

	endpoint, _ := f.hub.Endpoint(1)
	endpoint.Close()
	testutil.RequireClosed(t, f.host.Done(), waitTimeout, "host connection gone")

	select {
	case err := <-done:
		t.Fatalf("call completed with %v after host went away, want pending", err)
	default:
	}
	if proxy.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", proxy.Pending())
	}

	cancel()
	if err := testutil.RequireReceive(t, done, waitTimeout, "cancelled call"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled call = %v, want context.Canceled", err)
	}
	if proxy.Pending() != 0 {
		t.Errorf("Pending() = %d after cancel, want 0", proxy.Pending())
	}
}

func TestProxyEventSubscription(t *testing.T) {
	f := newFixture(t, 1)
	proxy := NewProxy(f.host, "window")
	focused := make(chan uint32, 2)
	subscription := proxy.On("focus", func(msg channel.Message) {
		var id uint32
		msg.Arg(0, &id)
		focused <- id
	})

	f.registry.Emit("window", "blur", 1)
	f.registry.Emit("window", "focus", 7)
	if id := testutil.RequireReceive(t, focused, waitTimeout, "focus event"); id != 7 {
		t.Errorf("focus id = %d, want 7", id)
	}

	subscription.Dispose()
	if count := f.host.ListenerCount(EventChannel("window")); count != 0 {
		t.Errorf("event listeners after Dispose = %d, want 0", count)
	}
}

func TestSenderFromContext(t *testing.T) {
	f := newFixture(t, 12)
	f.registry.Register("who", Methods{
		"me": Func0(func(ctx context.Context) (uint32, error) { return SenderFromContext(ctx), nil }),
	})
	var id uint32
	if err := NewProxy(f.host, "who").Call(testContext(t), "me", &id); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if id != 12 {
		t.Errorf("sender = %d, want 12", id)
	}
}

func TestProxyClose(t *testing.T) {
	f := newFixture(t, 1)
	f.hub.On(RequestChannel("never"), func(channel.Endpoint, channel.Message) {})
	proxy := NewProxy(f.host, "never")
	done := make(chan error, 1)
	go func() { done <- proxy.Call(context.Background(), "x", nil) }()
	testutil.Eventually(t, waitTimeout, func() bool { return proxy.Pending() == 1 }, "call pending")

	proxy.Close()
	if err := testutil.RequireReceive(t, done, waitTimeout, "closed call"); !errors.Is(err, ErrProxyClosed) {
		t.Errorf("pending call after Close = %v, want ErrProxyClosed", err)
	}
	if err := proxy.Call(context.Background(), "x", nil); !errors.Is(err, ErrProxyClosed) {
		t.Errorf("Call after Close = %v, want ErrProxyClosed", err)
	}
}
