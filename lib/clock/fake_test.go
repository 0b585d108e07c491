// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(5 * time.Second)
	if got, want := c.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(5 * time.Second)

	c.Advance(3 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before deadline")
	default:
	}

	c.Advance(2 * time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at exact deadline")
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-c.After(d):
		default:
			t.Fatalf("After(%v) should be ready immediately", d)
		}
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", c.PendingCount())
	}
}

func TestFakeClockAfterFunc(t *testing.T) {
	c := Fake(epoch)
	var called atomic.Bool
	c.AfterFunc(2*time.Second, func() { called.Store(true) })

	c.Advance(time.Second)
	if called.Load() {
		t.Fatal("AfterFunc fired before deadline")
	}
	c.Advance(time.Second)
	if !called.Load() {
		t.Fatal("AfterFunc did not fire at deadline")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after firing, want 0", c.PendingCount())
	}
}

func TestFakeClockAfterFuncZeroRunsSynchronously(t *testing.T) {
	c := Fake(epoch)
	var called atomic.Bool
	timer := c.AfterFunc(0, func() { called.Store(true) })
	if !called.Load() {
		t.Fatal("AfterFunc(0) should call f synchronously")
	}
	if timer.Stop() {
		t.Error("Stop on an already-run timer should return false")
	}
}

func TestFakeClockStop(t *testing.T) {
	c := Fake(epoch)
	var called atomic.Bool
	timer := c.AfterFunc(time.Second, func() { called.Store(true) })

	if !timer.Stop() {
		t.Fatal("Stop on a pending timer should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}
	c.Advance(time.Minute)
	if called.Load() {
		t.Fatal("stopped timer fired")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", c.PendingCount())
	}
}

func TestFakeClockFiresInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)
	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 10) })

	c.Advance(5 * time.Second)

	want := []int{1, 10, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("fired %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("fired %v, want %v", order, want)
		}
	}
}

func TestFakeClockCallbackSchedulesWithinAdvance(t *testing.T) {
	c := Fake(epoch)
	var second atomic.Bool
	c.AfterFunc(time.Second, func() {
		c.AfterFunc(time.Second, func() { second.Store(true) })
	})

	c.Advance(3 * time.Second)
	if !second.Load() {
		t.Fatal("timer scheduled by a callback inside the advanced window did not fire")
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.Sleep(time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Sleep did not return after Advance")
	}
}
