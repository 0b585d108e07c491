// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the controller's YAML configuration.
//
// Configuration comes from a single file named by the CASEMENT_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Without either, [Default] is used as-is; there is no
// file discovery.
//
// The file may carry development, staging and production sections that
// override base values when [Config].Environment matches. Path fields
// expand ${HOME}, ${CASEMENT_ROOT} and ${VAR:-default}.
//
// Window presets under "windows" are merged field by field over the
// built-in presets, so a file only names what it changes.
package config
