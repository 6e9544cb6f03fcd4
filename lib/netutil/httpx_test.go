// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestReadResponseBounded(t *testing.T) {
	// An endless reader must be cut off at the bound rather than
	// read forever.
	endless := strings.NewReader(strings.Repeat("x", 1024))
	data, err := ReadResponse(endless)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if len(data) != 1024 {
		t.Errorf("read %d bytes, want 1024", len(data))
	}
}

func TestDecodeResponse(t *testing.T) {
	var decoded struct {
		Took int `json:"took"`
	}
	if err := DecodeResponse(strings.NewReader(`{"took": 12}`), &decoded); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if decoded.Took != 12 {
		t.Errorf("took = %d, want 12", decoded.Took)
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	var decoded map[string]any
	if err := DecodeResponse(strings.NewReader(`{"took":`), &decoded); err == nil {
		t.Fatal("malformed JSON did not error")
	}
}

func TestErrorBodySwallowsReadErrors(t *testing.T) {
	if got := ErrorBody(strings.NewReader("index_not_found")); got != "index_not_found" {
		t.Errorf("ErrorBody = %q", got)
	}
}
