// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casement-foundation/casement/lib/testutil"
	"github.com/casement-foundation/casement/lib/version"
)

func TestMetaWaitsForReady(t *testing.T) {
	session := uuid.New()
	service := New(session, testutil.Logger())
	service.SetRPCListenPath("/run/casement/casement.sock")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := service.Meta(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Meta before ready = %v, want DeadlineExceeded", err)
	}

	result := make(chan Meta, 1)
	go func() {
		meta, err := service.Meta(context.Background())
		if err != nil {
			t.Errorf("Meta: %v", err)
		}
		result <- meta
	}()
	service.MarkReady()

	meta := testutil.RequireReceive(t, result, 5*time.Second)
	if meta.SessionID != session.String() || meta.RPCListenPath != "/run/casement/casement.sock" {
		t.Fatalf("Meta = %+v", meta)
	}
	if meta.Versions.Version != version.Version {
		t.Errorf("versions = %+v", meta.Versions)
	}
}

func TestDisplayName(t *testing.T) {
	service := New(uuid.New(), testutil.Logger())
	old := version.Version
	t.Cleanup(func() { version.Version = old })

	version.Version = "1.0.0"
	if got := service.DisplayName(); got != "casement" {
		t.Errorf("release DisplayName = %q", got)
	}
	version.Version = "1.1.0-dev"
	if got := service.DisplayName(); got != "casement-dev" {
		t.Errorf("dev DisplayName = %q", got)
	}
}
