// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/facet-analytics/facet/lib/codec"
)

// Report is one shipped batch of usage counts. CBOR-encoded with the
// deterministic codec, then wrapped in an [Envelope].
type Report struct {
	// InstallID identifies the installation (random, not the user).
	InstallID string `cbor:"install_id"`

	// Sequence increments per shipped report from one installation.
	// The collector deduplicates on (install_id, sequence).
	Sequence uint64 `cbor:"sequence"`

	// CollectedAt is when the recorder was drained.
	CollectedAt time.Time `cbor:"collected_at"`

	// SchemaHash is the keyed BLAKE3 hash of the canonical schema
	// JSON, so the pipeline can detect stale clients.
	SchemaHash [32]byte `cbor:"schema_hash"`

	// Counts are the non-zero counters, sorted by group then name.
	Counts []Count `cbor:"counts"`
}

// CompressionTag identifies the envelope payload compression. The
// values are wire constants.
type CompressionTag uint8

const (
	// CompressionNone stores the CBOR report uncompressed. Used when
	// compression does not shrink the payload (tiny reports).
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: fast, modest ratio.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level: the best ratio
	// for the repetitive group/name strings in reports. The default.
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// Envelope wire format:
//
//	magic "FCT1" (4 bytes)
//	compression tag (1 byte)
//	uncompressed payload length (4 bytes, big-endian)
//	compressed payload length (4 bytes, big-endian)
//	payload
//
// The uncompressed length is carried so LZ4 block decompression can
// allocate exactly, and so the bound is enforced before any
// decompression work happens.
var envelopeMagic = [4]byte{'F', 'C', 'T', '1'}

const envelopeHeaderSize = 4 + 1 + 4 + 4

// MaxEnvelopePayload bounds the uncompressed report size: 4 MB. Real
// reports are well under a kilobyte; the bound exists so the
// collector never allocates at an attacker's direction.
const MaxEnvelopePayload = 4 << 20

// zstd encoder/decoder are reused across calls. Both are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("telemetry: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("telemetry: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeEnvelope CBOR-encodes the report and wraps it in the envelope
// format using the requested compression. When compression does not
// shrink the payload, the envelope falls back to CompressionNone.
func EncodeEnvelope(report *Report, tag CompressionTag) ([]byte, error) {
	payload, err := codec.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("telemetry: encoding report: %w", err)
	}
	if len(payload) > MaxEnvelopePayload {
		return nil, fmt.Errorf("telemetry: report payload %d bytes exceeds bound %d", len(payload), MaxEnvelopePayload)
	}

	compressed := payload
	switch tag {
	case CompressionNone:
		// Leave as-is.
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(payload))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(payload, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("telemetry: lz4 compress: %w", err)
		}
		if written == 0 || written >= len(payload) {
			tag = CompressionNone
		} else {
			compressed = destination[:written]
		}
	case CompressionZstd:
		candidate := zstdEncoder.EncodeAll(payload, nil)
		if len(candidate) >= len(payload) {
			tag = CompressionNone
		} else {
			compressed = candidate
		}
	default:
		return nil, fmt.Errorf("telemetry: unsupported compression tag: %d", tag)
	}

	envelope := make([]byte, 0, envelopeHeaderSize+len(compressed))
	envelope = append(envelope, envelopeMagic[:]...)
	envelope = append(envelope, byte(tag))
	envelope = binary.BigEndian.AppendUint32(envelope, uint32(len(payload)))
	envelope = binary.BigEndian.AppendUint32(envelope, uint32(len(compressed)))
	envelope = append(envelope, compressed...)
	return envelope, nil
}

// DecodeEnvelope unwraps and decodes an envelope produced by
// EncodeEnvelope. The size bound is enforced on the declared
// uncompressed length before decompression.
func DecodeEnvelope(data []byte) (*Report, error) {
	if len(data) < envelopeHeaderSize {
		return nil, fmt.Errorf("telemetry: envelope truncated: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], envelopeMagic[:]) {
		return nil, fmt.Errorf("telemetry: bad envelope magic %q", data[:4])
	}
	tag := CompressionTag(data[4])
	uncompressedLength := binary.BigEndian.Uint32(data[5:9])
	compressedLength := binary.BigEndian.Uint32(data[9:13])

	if uncompressedLength > MaxEnvelopePayload {
		return nil, fmt.Errorf("telemetry: declared payload %d bytes exceeds bound %d", uncompressedLength, MaxEnvelopePayload)
	}
	body := data[envelopeHeaderSize:]
	if uint32(len(body)) != compressedLength {
		return nil, fmt.Errorf("telemetry: envelope body %d bytes, header declares %d", len(body), compressedLength)
	}

	var payload []byte
	switch tag {
	case CompressionNone:
		if uint32(len(body)) != uncompressedLength {
			return nil, fmt.Errorf("telemetry: uncompressed body %d bytes, header declares %d", len(body), uncompressedLength)
		}
		payload = body
	case CompressionLZ4:
		payload = make([]byte, uncompressedLength)
		read, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("telemetry: lz4 decompress: %w", err)
		}
		if uint32(read) != uncompressedLength {
			return nil, fmt.Errorf("telemetry: lz4 decompress: got %d bytes, expected %d", read, uncompressedLength)
		}
	case CompressionZstd:
		decompressed, err := zstdDecoder.DecodeAll(body, make([]byte, 0, uncompressedLength))
		if err != nil {
			return nil, fmt.Errorf("telemetry: zstd decompress: %w", err)
		}
		if uint32(len(decompressed)) != uncompressedLength {
			return nil, fmt.Errorf("telemetry: zstd decompress: got %d bytes, expected %d", len(decompressed), uncompressedLength)
		}
		payload = decompressed
	default:
		return nil, fmt.Errorf("telemetry: unsupported compression tag: %d", tag)
	}

	var report Report
	if err := codec.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("telemetry: decoding report: %w", err)
	}
	return &report, nil
}
