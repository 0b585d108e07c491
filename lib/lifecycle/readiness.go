// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"sync"
)

// Readiness is a one-shot ready signal. The zero value is not ready;
// construct with NewReadiness.
type Readiness struct {
	once  sync.Once
	ready chan struct{}
}

// NewReadiness returns a Readiness that has not fired.
func NewReadiness() *Readiness {
	return &Readiness{ready: make(chan struct{})}
}

// MarkReady fires the signal. Later calls are no-ops.
func (r *Readiness) MarkReady() {
	r.once.Do(func() { close(r.ready) })
}

// Ready returns a channel closed once MarkReady has been called.
func (r *Readiness) Ready() <-chan struct{} {
	return r.ready
}

// IsReady reports whether MarkReady has been called.
func (r *Readiness) IsReady() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal fires or ctx is done.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
