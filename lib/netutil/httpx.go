// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response reading. Every JSON
// response facet reads (Elasticsearch search and field-caps bodies,
// collector status) goes through these helpers so that a misbehaving
// server can never drive unbounded allocation. Streaming transfers
// are out of scope — facet has none.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON response body reads: 64 MB. Aggregation
// responses are a few kilobytes; the bound only exists so a
// pathological body cannot exhaust memory, and is generous enough to
// never interfere with real traffic.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll on HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (bounded) and JSON-decodes it
// into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an error response body for inclusion in a
// diagnostic message. Read errors are ignored — a partial body is
// still better than none in an error string.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
