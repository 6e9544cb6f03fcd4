// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"sync"
	"time"
)

// Bucket is one time bucket of a date histogram. When the query has a
// breakdown field, Breakdown carries the per-series counts in the
// order the backend returned them and Count is their total plus the
// remainder outside the top series.
type Bucket struct {
	Start     time.Time
	Count     int64
	Breakdown []SeriesCount
}

// SeriesCount is one breakdown series slice within a bucket.
type SeriesCount struct {
	Name  string
	Count int64
}

// Field describes one index field, as reported by field capabilities.
type Field struct {
	Name         string
	Type         string
	Aggregatable bool
}

// Suggestion is an alternative way to look at the current index,
// derived from its field capabilities. Applying one switches the
// chart kind and breakdown.
type Suggestion struct {
	// Label is the display text in the suggestion dropdown.
	Label string

	// Kind is the chart kind to switch to, "bar" or "line".
	Kind string

	// Breakdown is the field to split series on, empty for none.
	Breakdown string
}

// Snapshot is the source's current result state.
type Snapshot struct {
	Total       int64
	Buckets     []Bucket
	Fields      []Field
	Suggestions []Suggestion
	Took        time.Duration
}

// Params describes one histogram query.
type Params struct {
	Index     string
	TimeField string
	From      string
	To        string
	Interval  string
	Breakdown string
}

// EventKind discriminates source events.
type EventKind int

const (
	// EventResult carries a fresh snapshot after a completed query.
	EventResult EventKind = iota

	// EventSuggestions carries updated suggestions (snapshot has the
	// new Suggestions and Fields; buckets are unchanged).
	EventSuggestions

	// EventError reports a failed query.
	EventError
)

// Event is pushed to subscribers when the source's state changes.
type Event struct {
	Kind     EventKind
	Snapshot *Snapshot
	Err      error
}

// Source produces histogram data for the panel. Query is
// asynchronous: it returns once the query is accepted and the
// completion arrives later as an event on the subscription channel.
type Source interface {
	// Snapshot returns the current result state. Never nil.
	Snapshot() *Snapshot

	// Query starts a new histogram query.
	Query(params Params) error

	// Subscribe returns a channel of state-change events. The channel
	// is buffered; a subscriber that stops draining loses events
	// rather than blocking the source.
	Subscribe() <-chan Event

	// Close terminates the source and closes all subscription
	// channels.
	Close()
}

// Loading states reported by LoadingStater.
const (
	LoadingIdle     = "idle"
	LoadingQuerying = "querying"
	LoadingComplete = "complete"
	LoadingFailed   = "failed"
)

// LoadingStater is an optional Source capability: sources that know
// whether a query is in flight report it here, and the panel shows a
// spinner while the state is LoadingQuerying.
type LoadingStater interface {
	LoadingState() string
}

// StaticSource is a fixture-driven Source for tests and demo mode.
// Query re-publishes the configured snapshot unchanged (or the
// configured error), so the panel sees the full event flow without a
// backend.
type StaticSource struct {
	mutex       sync.Mutex
	snapshot    *Snapshot
	queryErr    error
	loading     string
	subscribers []chan Event
	lastParams  Params
	closed      bool
}

// NewStaticSource creates a source that always serves the given
// snapshot. A nil snapshot becomes an empty one.
func NewStaticSource(snapshot *Snapshot) *StaticSource {
	if snapshot == nil {
		snapshot = &Snapshot{}
	}
	return &StaticSource{snapshot: snapshot, loading: LoadingIdle}
}

// FailWith makes subsequent queries publish an EventError carrying
// err instead of a result.
func (source *StaticSource) FailWith(err error) {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	source.queryErr = err
}

// Snapshot implements Source.
func (source *StaticSource) Snapshot() *Snapshot {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	return source.snapshot
}

// LastParams returns the params of the most recent Query call.
func (source *StaticSource) LastParams() Params {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	return source.lastParams
}

// Query implements Source. The event is published synchronously, so
// tests observe it on the subscription channel as soon as Query
// returns.
func (source *StaticSource) Query(params Params) error {
	source.mutex.Lock()
	source.lastParams = params
	event := Event{Kind: EventResult, Snapshot: source.snapshot}
	if source.queryErr != nil {
		event = Event{Kind: EventError, Err: source.queryErr}
		source.loading = LoadingFailed
	} else {
		source.loading = LoadingComplete
	}
	subscribers := make([]chan Event, len(source.subscribers))
	copy(subscribers, source.subscribers)
	source.mutex.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
		}
	}
	return nil
}

// LoadingState implements LoadingStater.
func (source *StaticSource) LoadingState() string {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	return source.loading
}

// Subscribe implements Source.
func (source *StaticSource) Subscribe() <-chan Event {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	channel := make(chan Event, 4)
	source.subscribers = append(source.subscribers, channel)
	return channel
}

// Close implements Source. Idempotent.
func (source *StaticSource) Close() {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	if source.closed {
		return
	}
	source.closed = true
	for _, subscriber := range source.subscribers {
		close(subscriber)
	}
	source.subscribers = nil
}
