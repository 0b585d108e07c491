// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Casement-call calls a method on a running controller's service from
// the shell:
//
//	casement-call [--socket path] <service> <method> [arg...]
//
// Each arg is parsed as JSON (comments and trailing commas allowed) and
// passed as a positional argument; an arg that is not JSON is passed as
// a string. The result is printed as indented JSON.
package main
