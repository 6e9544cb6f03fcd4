// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package elastic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/facet-analytics/facet/lib/panelui"
)

// Source adapts a Client to panelui.Source. Queries run in a
// goroutine and complete as events on the subscription channels; the
// first completed query also fetches field capabilities and derives
// suggestions from them.
type Source struct {
	client *Client
	logger *slog.Logger

	mutex       sync.Mutex
	snapshot    *panelui.Snapshot
	loading     string
	subscribers []chan panelui.Event
	closed      bool
	capsLoaded  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSource creates a source backed by the given client.
func NewSource(client *Client, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		client:   client,
		logger:   logger,
		snapshot: &panelui.Snapshot{},
		loading:  panelui.LoadingIdle,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Snapshot implements panelui.Source.
func (source *Source) Snapshot() *panelui.Snapshot {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	return source.snapshot
}

// LoadingState implements panelui.LoadingStater.
func (source *Source) LoadingState() string {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	return source.loading
}

// Subscribe implements panelui.Source.
func (source *Source) Subscribe() <-chan panelui.Event {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	channel := make(chan panelui.Event, 4)
	source.subscribers = append(source.subscribers, channel)
	return channel
}

// Close implements panelui.Source. Idempotent.
func (source *Source) Close() {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	if source.closed {
		return
	}
	source.closed = true
	source.cancel()
	for _, subscriber := range source.subscribers {
		close(subscriber)
	}
	source.subscribers = nil
}

// Query implements panelui.Source. The histogram runs in a goroutine;
// completion arrives as an EventResult or EventError. The first
// successful query additionally loads field capabilities and follows
// up with an EventSuggestions.
func (source *Source) Query(params panelui.Params) error {
	if params.Index == "" {
		return fmt.Errorf("elastic: query index is required")
	}

	source.mutex.Lock()
	if source.closed {
		source.mutex.Unlock()
		return fmt.Errorf("elastic: source is closed")
	}
	source.loading = panelui.LoadingQuerying
	source.mutex.Unlock()

	go source.run(params)
	return nil
}

func (source *Source) run(params panelui.Params) {
	result, err := source.client.DateHistogram(source.ctx, HistogramRequest{
		Index:     params.Index,
		TimeField: params.TimeField,
		From:      params.From,
		To:        params.To,
		Interval:  params.Interval,
		Breakdown: params.Breakdown,
	})
	if err != nil {
		source.mutex.Lock()
		source.loading = panelui.LoadingFailed
		source.mutex.Unlock()
		source.publish(panelui.Event{Kind: panelui.EventError, Err: err})
		return
	}

	source.mutex.Lock()
	previous := source.snapshot
	snapshot := &panelui.Snapshot{
		Total:       result.Total,
		Buckets:     result.Buckets,
		Fields:      previous.Fields,
		Suggestions: previous.Suggestions,
		Took:        result.Took,
	}
	source.snapshot = snapshot
	source.loading = panelui.LoadingComplete
	needCaps := !source.capsLoaded
	source.capsLoaded = true
	source.mutex.Unlock()

	source.publish(panelui.Event{Kind: panelui.EventResult, Snapshot: snapshot})

	if needCaps {
		source.loadSuggestions(params)
	}
}

// loadSuggestions fetches field capabilities and publishes derived
// suggestions. Failures are logged and leave the suggestions empty.
func (source *Source) loadSuggestions(params panelui.Params) {
	fields, err := source.client.FieldCaps(source.ctx, params.Index)
	if err != nil {
		source.logger.Warn("field capabilities unavailable",
			"index", params.Index, "error", err)
		source.mutex.Lock()
		source.capsLoaded = false
		source.mutex.Unlock()
		return
	}

	suggestions := DeriveSuggestions(fields, params.TimeField)

	source.mutex.Lock()
	snapshot := &panelui.Snapshot{
		Total:       source.snapshot.Total,
		Buckets:     source.snapshot.Buckets,
		Fields:      fields,
		Suggestions: suggestions,
		Took:        source.snapshot.Took,
	}
	source.snapshot = snapshot
	source.mutex.Unlock()

	source.publish(panelui.Event{Kind: panelui.EventSuggestions, Snapshot: snapshot})
}

func (source *Source) publish(event panelui.Event) {
	source.mutex.Lock()
	if source.closed {
		source.mutex.Unlock()
		return
	}
	subscribers := make([]chan panelui.Event, len(source.subscribers))
	copy(subscribers, source.subscribers)
	source.mutex.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
		}
	}
}

// numericFieldTypes are the ES field types plotted as a line.
var numericFieldTypes = map[string]bool{
	"long": true, "integer": true, "short": true, "byte": true,
	"double": true, "float": true, "half_float": true, "scaled_float": true,
}

// DeriveSuggestions maps the index's fields to chart suggestions:
// aggregatable keyword fields suggest a stacked bar split on the
// field, numeric fields suggest a line chart, and an index with
// nothing but date fields gets a plain bar fallback.
func DeriveSuggestions(fields []panelui.Field, timeField string) []panelui.Suggestion {
	var suggestions []panelui.Suggestion
	sawNumeric := false
	for _, field := range fields {
		if field.Name == timeField {
			continue
		}
		switch {
		case field.Type == "keyword" && field.Aggregatable:
			suggestions = append(suggestions, panelui.Suggestion{
				Label:     fmt.Sprintf("stacked by %s", trimKeywordSuffix(field.Name)),
				Kind:      "bar",
				Breakdown: field.Name,
			})
		case numericFieldTypes[field.Type] && !sawNumeric:
			sawNumeric = true
			suggestions = append(suggestions, panelui.Suggestion{
				Label: "event volume as a line",
				Kind:  "line",
			})
		}
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, panelui.Suggestion{
			Label: "plain event volume",
			Kind:  "bar",
		})
	}
	return suggestions
}

// trimKeywordSuffix drops the ".keyword" multi-field suffix for
// display.
func trimKeywordSuffix(name string) string {
	return strings.TrimSuffix(name, ".keyword")
}
