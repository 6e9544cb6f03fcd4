// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"sort"
	"sync"
)

// Count is one non-zero counter value in a snapshot or report.
type Count struct {
	Group string `cbor:"group" json:"group"`
	Name  string `cbor:"name" json:"name"`
	Value int64  `cbor:"value" json:"value"`
}

// counterKey identifies a counter within the recorder's map.
type counterKey struct {
	group string
	name  string
}

// Recorder accumulates usage counters against a schema. Safe for
// concurrent use. Increments for counters the schema does not declare
// are silently dropped — a misspelled counter name must never crash
// or degrade the UI.
type Recorder struct {
	schema Schema

	mutex  sync.Mutex
	counts map[counterKey]int64
}

// NewRecorder creates a recorder over the given schema (normally
// [Usage]).
func NewRecorder(schema Schema) *Recorder {
	return &Recorder{
		schema: schema,
		counts: make(map[counterKey]int64),
	}
}

// Add increments a counter by delta. Unknown group/name pairs and
// non-positive deltas are dropped.
func (recorder *Recorder) Add(group, name string, delta int64) {
	if delta <= 0 {
		return
	}
	if _, ok := recorder.schema.Lookup(group, name); !ok {
		return
	}
	recorder.mutex.Lock()
	recorder.counts[counterKey{group, name}] += delta
	recorder.mutex.Unlock()
}

// Increment is Add with a delta of one, the common case at call sites.
func (recorder *Recorder) Increment(group, name string) {
	recorder.Add(group, name, 1)
}

// Snapshot returns the non-zero counters sorted by group then name,
// without resetting them.
func (recorder *Recorder) Snapshot() []Count {
	recorder.mutex.Lock()
	counts := recorder.collectLocked()
	recorder.mutex.Unlock()
	return counts
}

// Drain returns the non-zero counters and resets them to zero. The
// reporter drains before shipping; on ship failure it calls Merge to
// put the counts back.
func (recorder *Recorder) Drain() []Count {
	recorder.mutex.Lock()
	counts := recorder.collectLocked()
	recorder.counts = make(map[counterKey]int64)
	recorder.mutex.Unlock()
	return counts
}

// Merge adds counts back into the recorder. Used to restore drained
// counts after a failed ship so nothing is lost; increments recorded
// in the meantime are preserved.
func (recorder *Recorder) Merge(counts []Count) {
	recorder.mutex.Lock()
	for _, count := range counts {
		if _, ok := recorder.schema.Lookup(count.Group, count.Name); !ok {
			continue
		}
		recorder.counts[counterKey{count.Group, count.Name}] += count.Value
	}
	recorder.mutex.Unlock()
}

// collectLocked builds the sorted non-zero count list. Caller holds
// the mutex.
func (recorder *Recorder) collectLocked() []Count {
	counts := make([]Count, 0, len(recorder.counts))
	for key, value := range recorder.counts {
		if value == 0 {
			continue
		}
		counts = append(counts, Count{Group: key.group, Name: key.name, Value: value})
	}
	sort.Slice(counts, func(a, b int) bool {
		if counts[a].Group != counts[b].Group {
			return counts[a].Group < counts[b].Group
		}
		return counts[a].Name < counts[b].Name
	})
	return counts
}
