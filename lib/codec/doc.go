// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// controller and every UI-host process.
//
// All cross-process traffic is CBOR: channel frames, RPC arguments and
// results, wait-for-reply payloads, and the second-instance hand-off.
// Configuration and on-disk storage stay YAML and JSON because humans
// edit them.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical value always produces identical bytes. The decoder maps
// untyped CBOR maps to map[string]any so payloads decoded into `any`
// are usable with encoding/json and ordinary Go code.
//
// For buffer-oriented operations (RPC arguments, stored results):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (channel connections):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Positional argument lists, the shape every channel frame carries, are
// built with [MarshalArgs] and decoded one element at a time with
// [Unmarshal].
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that only ever crosses a channel. A `json`
// tag marks a type that is also printed by CLI tools or read from
// configuration; fxamacker/cbor falls back to `json` tags when `cbor`
// tags are absent. Never put both on one field.
package codec
