// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package instance keeps casement to one controller per user.
//
// The first process to start takes an exclusive flock on the lock file
// and serves the hub. Later invocations fail to take the lock, parse
// their command line into an [Invocation], and hand it to the running
// controller over the hub socket with [Forward] before exiting.
package instance
