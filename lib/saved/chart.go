// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package saved persists chart definitions as JSONC files in a
// directory. A definition captures everything needed to reopen a
// chart: the index, the time field, the interval, the optional
// breakdown field, and the chart kind. Files are hand-editable;
// comments and trailing commas are tolerated on read.
package saved

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/facet-analytics/facet/lib/codec"
)

// Chart is one saved chart definition.
type Chart struct {
	// Title is the display name, shown in the open dropdown and as
	// the sort key for listings.
	Title string `json:"title"`

	// Description is optional Markdown shown in the panel footer
	// when the chart is loaded.
	Description string `json:"description,omitempty"`

	// Index is the Elasticsearch index or index pattern to query.
	Index string `json:"index"`

	// TimeField is the date field the histogram buckets on.
	TimeField string `json:"time_field"`

	// Interval is the bucket interval (for example "1h" or "1d").
	Interval string `json:"interval"`

	// Breakdown is an optional keyword field to split series on.
	Breakdown string `json:"breakdown,omitempty"`

	// Kind selects the renderer, "bar" or "line".
	Kind string `json:"kind"`

	// CreatedAt records when the chart was first saved. It does not
	// participate in the content ID.
	CreatedAt time.Time `json:"created_at"`
}

// chartDomainKey is the 32-byte key for BLAKE3 keyed hashing of chart
// definitions. The byte values are the ASCII encoding of the domain
// name, zero-padded to 32 bytes, so the key stays inspectable in hex
// dumps. Changing it invalidates every existing chart ID.
var chartDomainKey = [32]byte{
	'f', 'a', 'c', 'e', 't', '.', 's', 'a', 'v', 'e', 'd', '.',
	'c', 'h', 'a', 'r', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ID returns the chart's content identity: the first 16 hex
// characters of the keyed BLAKE3 hash of the canonical CBOR encoding.
// CreatedAt is excluded, so re-saving the same definition always
// yields the same ID.
func (chart *Chart) ID() (string, error) {
	identity := *chart
	identity.CreatedAt = time.Time{}

	encoded, err := codec.Marshal(&identity)
	if err != nil {
		return "", fmt.Errorf("saved: encoding chart for hashing: %w", err)
	}

	hasher, err := blake3.NewKeyed(chartDomainKey[:])
	if err != nil {
		return "", fmt.Errorf("saved: initializing chart hasher: %w", err)
	}
	hasher.Write(encoded)

	var digest [32]byte
	hasher.Sum(digest[:0])
	return hex.EncodeToString(digest[:8]), nil
}

// Validate checks that the definition is complete enough to execute.
func (chart *Chart) Validate() error {
	if strings.TrimSpace(chart.Title) == "" {
		return fmt.Errorf("saved: chart title is required")
	}
	if chart.Index == "" {
		return fmt.Errorf("saved: chart %q: index is required", chart.Title)
	}
	if chart.TimeField == "" {
		return fmt.Errorf("saved: chart %q: time_field is required", chart.Title)
	}
	if chart.Interval == "" {
		return fmt.Errorf("saved: chart %q: interval is required", chart.Title)
	}
	switch chart.Kind {
	case "bar", "line":
	default:
		return fmt.Errorf("saved: chart %q: kind must be bar or line, got %q",
			chart.Title, chart.Kind)
	}
	return nil
}
