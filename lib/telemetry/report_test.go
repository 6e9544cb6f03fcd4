// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"strings"
	"testing"
	"time"
)

func sampleReport() *Report {
	hash, _ := Usage.Hash()
	return &Report{
		InstallID:   "00112233445566778899aabbccddeeff",
		Sequence:    7,
		CollectedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		SchemaHash:  hash,
		Counts: []Count{
			{Group: "panel", Name: "opened", Value: 1},
			{Group: "query", Name: "issued", Value: 12},
		},
	}
}

func TestEnvelopeRoundTripAllTags(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		envelope, err := EncodeEnvelope(sampleReport(), tag)
		if err != nil {
			t.Fatalf("%s: encode: %v", tag, err)
		}

		decoded, err := DecodeEnvelope(envelope)
		if err != nil {
			t.Fatalf("%s: decode: %v", tag, err)
		}
		if decoded.InstallID != sampleReport().InstallID {
			t.Errorf("%s: install ID lost", tag)
		}
		if decoded.Sequence != 7 {
			t.Errorf("%s: sequence = %d", tag, decoded.Sequence)
		}
		if len(decoded.Counts) != 2 || decoded.Counts[1].Value != 12 {
			t.Errorf("%s: counts = %+v", tag, decoded.Counts)
		}
		if decoded.SchemaHash != sampleReport().SchemaHash {
			t.Errorf("%s: schema hash lost", tag)
		}
	}
}

func TestEnvelopeIncompressibleFallsBackToNone(t *testing.T) {
	// A tiny report compresses to more than its own size; the
	// envelope must carry the none tag rather than grow.
	tiny := &Report{InstallID: "ab", Sequence: 1}
	envelope, err := EncodeEnvelope(tiny, CompressionLZ4)
	if err != nil {
		t.Fatal(err)
	}
	if tag := CompressionTag(envelope[4]); tag != CompressionNone {
		t.Errorf("tag = %s, want none fallback", tag)
	}
	if _, err := DecodeEnvelope(envelope); err != nil {
		t.Errorf("fallback envelope should decode: %v", err)
	}
}

func TestDecodeEnvelopeRejectsBadInput(t *testing.T) {
	good, err := EncodeEnvelope(sampleReport(), CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"truncated", good[:8], "truncated"},
		{"bad magic", append([]byte("XXXX"), good[4:]...), "magic"},
		{"length mismatch", good[:len(good)-1], "declares"},
		{"unknown tag", mutateByte(good, 4, 9), "compression tag"},
	}
	for _, testCase := range cases {
		_, err := DecodeEnvelope(testCase.data)
		if err == nil {
			t.Errorf("%s: decode should fail", testCase.name)
			continue
		}
		if !strings.Contains(err.Error(), testCase.want) {
			t.Errorf("%s: error %q should mention %q", testCase.name, err, testCase.want)
		}
	}
}

func mutateByte(data []byte, index int, value byte) []byte {
	mutated := make([]byte, len(data))
	copy(mutated, data)
	mutated[index] = value
	return mutated
}

func TestCompressionTagString(t *testing.T) {
	if CompressionZstd.String() != "zstd" || CompressionLZ4.String() != "lz4" || CompressionNone.String() != "none" {
		t.Error("tag names wrong")
	}
	if !strings.Contains(CompressionTag(9).String(), "unknown") {
		t.Error("unknown tag should say so")
	}
}
