// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

var decMode cbor.DecMode

// null is the CBOR encoding of the simple value null (0xf6). Absent
// positional arguments and nil results travel as null.
var null = []byte{0xf6}

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	// Window metadata carries timestamps; RFC 3339 strings decode
	// cleanly on hosts that only see map[string]any.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Payloads decoded into any must be plain map[string]any,
		// not map[interface{}]interface{}, so they can be re-encoded
		// as JSON for storage and CLI output.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Empty data is treated as null,
// which leaves v at its zero value.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		data = null
	}
	return decMode.Unmarshal(data, v)
}

// MarshalArgs encodes each argument separately so a receiver can decode
// positional arguments into different types.
func MarshalArgs(args ...any) ([]RawMessage, error) {
	raw := make([]RawMessage, len(args))
	for i, arg := range args {
		if arg == nil {
			raw[i] = Null()
			continue
		}
		data, err := encMode.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encoding argument %d: %w", i, err)
		}
		raw[i] = data
	}
	return raw, nil
}

// Null returns a fresh encoded CBOR null.
func Null() RawMessage {
	return RawMessage{null[0]}
}

// IsNull reports whether raw is empty or encodes CBOR null or
// undefined.
func IsNull(raw []byte) bool {
	if len(raw) == 0 {
		return true
	}
	return bytes.Equal(raw, null) || bytes.Equal(raw, []byte{0xf7})
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only lib/codec, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value used to delay decoding until
// the receiver knows the target type.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for data.
// Used when logging frames that failed to decode.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
