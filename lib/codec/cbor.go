// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec centralizes facet's CBOR configuration. Usage reports
// and saved-chart content hashing both depend on the guarantee that
// the same logical value always encodes to identical bytes, so every
// encode in the repository goes through this package rather than
// configuring fxamacker/cbor locally.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer widths, no indefinite-length items.
// Deterministic bytes are what make content-derived IDs stable.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields, so old
// collectors can read reports from newer viewers.
var decMode cbor.DecMode

func init() {
	encOptions := cbor.CoreDetEncOptions()
	// encoding.TextMarshaler implementers serialize as CBOR text
	// strings. Time-like and enum-like types in reports rely on this
	// to stay readable in diagnostic dumps.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString

	var err error
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Facet map keys are always strings. any-typed decode targets
		// get map[string]any instead of CBOR's default
		// map[interface{}]interface{}, which nothing downstream
		// (encoding/json in particular) can consume. Struct decoding
		// is unaffected.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v with the deterministic encoder.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns CBOR diagnostic notation (RFC 8949 §8) for data.
// Used by collector debugging output, never on hot paths.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
