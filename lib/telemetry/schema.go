// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry defines facet's usage counter schema and the
// machinery around it: in-process recording, CBOR report encoding
// with a compressed envelope, and the background reporter that ships
// reports to the collection service.
//
// The schema is static and declarative: a nested mapping of counter
// names to long-integer descriptors. The collector serves it on
// GET /v1/schema and rejects reports carrying counters the schema
// does not declare.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// CounterType is the value type of a usage counter. Every facet
// counter is a long (signed 64-bit integer); the type exists so the
// schema is self-describing to the collection pipeline.
type CounterType string

// TypeLong is the only counter type.
const TypeLong CounterType = "long"

// Descriptor describes one counter: its type and a human-readable
// description for pipeline dashboards.
type Descriptor struct {
	Type        CounterType `json:"type"`
	Description string      `json:"description"`
}

// GroupSchema maps counter names to descriptors within one group.
type GroupSchema map[string]Descriptor

// Schema maps group names to their counters.
type Schema map[string]GroupSchema

// Usage is facet's usage counter schema. Counters are incremented by
// the viewer through a Recorder and validated by the collector on
// ingest. Names are lowercase snake_case; groups follow the UI
// surface they instrument.
var Usage = Schema{
	"panel": {
		"opened":       {Type: TypeLong, Description: "Chart panel instances opened."},
		"chart_hidden": {Type: TypeLong, Description: "Times the chart body was hidden with the toggle."},
		"chart_shown":  {Type: TypeLong, Description: "Times the chart body was unhidden with the toggle."},
		"resized":      {Type: TypeLong, Description: "Terminal resize events the panel relaid out for."},
	},
	"chart": {
		"rendered":           {Type: TypeLong, Description: "Successful chart renders by the embeddable."},
		"render_errors":      {Type: TypeLong, Description: "Chart renders that failed inside the embeddable."},
		"suggestion_applied": {Type: TypeLong, Description: "Visualization suggestions applied from the selector."},
		"breakdown_changed":  {Type: TypeLong, Description: "Breakdown field changes via the selector."},
		"interval_changed":   {Type: TypeLong, Description: "Histogram interval changes via the selector."},
	},
	"save": {
		"dialog_opened": {Type: TypeLong, Description: "Save dialogs opened."},
		"chart_saved":   {Type: TypeLong, Description: "Chart definitions written to the saved store."},
		"save_errors":   {Type: TypeLong, Description: "Save attempts that failed validation or I/O."},
	},
	"edit": {
		"flyout_opened": {Type: TypeLong, Description: "Edit flyouts opened."},
		"input_applied": {Type: TypeLong, Description: "Edited inputs applied back to the chart."},
	},
	"query": {
		"issued":        {Type: TypeLong, Description: "Date-histogram queries issued to Elasticsearch."},
		"failed":        {Type: TypeLong, Description: "Queries that returned an error."},
		"hits_reported": {Type: TypeLong, Description: "Total hits across successful queries."},
	},
}

// Lookup returns the descriptor for a counter, reporting whether the
// schema declares it. The collector uses this to reject undeclared
// counters on ingest.
func (schema Schema) Lookup(group, name string) (Descriptor, bool) {
	counters, ok := schema[group]
	if !ok {
		return Descriptor{}, false
	}
	descriptor, ok := counters[name]
	return descriptor, ok
}

// Validate checks the schema declaration itself: every counter is a
// long with a non-empty description, and every group and counter name
// is lowercase snake_case. Duplicates cannot occur by construction
// (map keys).
func (schema Schema) Validate() error {
	for group, counters := range schema {
		if !snakeCase(group) {
			return fmt.Errorf("telemetry: group %q is not lowercase snake_case", group)
		}
		if len(counters) == 0 {
			return fmt.Errorf("telemetry: group %q has no counters", group)
		}
		for name, descriptor := range counters {
			if !snakeCase(name) {
				return fmt.Errorf("telemetry: counter %s.%s is not lowercase snake_case", group, name)
			}
			if descriptor.Type != TypeLong {
				return fmt.Errorf("telemetry: counter %s.%s has type %q, only %q exists", group, name, descriptor.Type, TypeLong)
			}
			if descriptor.Description == "" {
				return fmt.Errorf("telemetry: counter %s.%s has no description", group, name)
			}
		}
	}
	return nil
}

// snakeCase reports whether name is non-empty lowercase snake_case:
// [a-z0-9_]+ with no leading/trailing/double underscore.
func snakeCase(name string) bool {
	if name == "" || name[0] == '_' || name[len(name)-1] == '_' {
		return false
	}
	previousUnderscore := false
	for _, character := range name {
		switch {
		case character >= 'a' && character <= 'z', character >= '0' && character <= '9':
			previousUnderscore = false
		case character == '_':
			if previousUnderscore {
				return false
			}
			previousUnderscore = true
		default:
			return false
		}
	}
	return true
}

// CanonicalJSON returns the schema as deterministic JSON: groups and
// counters in sorted key order. encoding/json sorts map keys already;
// the function exists so hashing and the collector's /v1/schema
// response share one serialization.
func (schema Schema) CanonicalJSON() ([]byte, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("telemetry: marshaling schema: %w", err)
	}
	return data, nil
}

// schemaDomainKey is the BLAKE3 key for schema hashes. The ASCII
// domain name padded to 32 bytes; changing it invalidates every
// recorded schema hash.
var schemaDomainKey = [32]byte{
	'f', 'a', 'c', 'e', 't', '.', 't', 'e', 'l', 'e', 'm', 'e', 't', 'r', 'y', '.',
	's', 'c', 'h', 'e', 'm', 'a', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Hash returns the keyed BLAKE3 hash of the canonical schema JSON.
// Reports carry it so the pipeline can detect clients running a stale
// schema.
func (schema Schema) Hash() ([32]byte, error) {
	var hash [32]byte
	data, err := schema.CanonicalJSON()
	if err != nil {
		return hash, err
	}
	hasher, err := blake3.NewKeyed(schemaDomainKey[:])
	if err != nil {
		panic("telemetry: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	copy(hash[:], hasher.Sum(nil))
	return hash, nil
}

// Groups returns the group names in sorted order, for stable
// diagnostic output.
func (schema Schema) Groups() []string {
	groups := make([]string, 0, len(schema))
	for group := range schema {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}
