// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("empty BaseURL should be rejected")
	}
}

func TestPingReturnsVersion(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("path = %q, want /", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"version": map[string]any{"number": "8.14.3"},
		})
	}))

	version, err := client.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if version != "8.14.3" {
		t.Errorf("version = %q, want 8.14.3", version)
	}
}

func TestBasicAuthHeaderIsSent(t *testing.T) {
	var sawAuth bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		sawAuth = ok && username == "reader" && password == "hunter2"
		w.Write([]byte(`{"version":{"number":"8.0.0"}}`))
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Username: "reader",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !sawAuth {
		t.Error("request should carry the basic auth credentials")
	}
}

func TestErrorResponseDecodesToTypedError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception","reason":"no such index [gone]"}}`))
	}))

	_, err := client.FieldCaps(context.Background(), "gone")
	if err == nil {
		t.Fatal("404 should surface as an error")
	}
	var esErr *Error
	if !errors.As(err, &esErr) {
		t.Fatalf("error is %T, want *Error", err)
	}
	if esErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", esErr.StatusCode)
	}
	if !IsError(err, "index_not_found_exception") {
		t.Error("IsError should match the error type")
	}
	if !strings.Contains(esErr.Error(), "no such index") {
		t.Errorf("message should carry the reason: %q", esErr.Error())
	}
}

func TestNonJSONErrorBodyFailsLoud(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))

	_, err := client.Ping(context.Background())
	if err == nil {
		t.Fatal("502 should surface as an error")
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error should include the raw body: %v", err)
	}
}

func TestDateHistogramBuildsQueryAndDecodesBuckets(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logs-app/_search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Write([]byte(`{
			"took": 12,
			"hits": {"total": {"value": 500}},
			"aggregations": {"histogram": {"buckets": [
				{"key": 1772323200000, "doc_count": 300, "breakdown": {"buckets": [
					{"key": "api", "doc_count": 180},
					{"key": "web", "doc_count": 100}
				]}},
				{"key": 1772326800000, "doc_count": 200}
			]}}
		}`))
	}))

	result, err := client.DateHistogram(context.Background(), HistogramRequest{
		Index:     "logs-app",
		TimeField: "@timestamp",
		From:      "now-24h",
		To:        "now",
		Interval:  "1h",
		Breakdown: "service.keyword",
	})
	if err != nil {
		t.Fatalf("DateHistogram: %v", err)
	}

	if result.Total != 500 {
		t.Errorf("total = %d, want 500", result.Total)
	}
	if result.Took != 12*time.Millisecond {
		t.Errorf("took = %v, want 12ms", result.Took)
	}
	if len(result.Buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(result.Buckets))
	}
	first := result.Buckets[0]
	if first.Count != 300 || len(first.Breakdown) != 2 {
		t.Errorf("first bucket = %+v", first)
	}
	if first.Breakdown[0].Name != "api" || first.Breakdown[0].Count != 180 {
		t.Errorf("first series = %+v", first.Breakdown[0])
	}
	if !first.Start.Equal(time.UnixMilli(1772323200000).UTC()) {
		t.Errorf("bucket start = %v", first.Start)
	}
	if result.Buckets[1].Breakdown != nil {
		t.Error("bucket without terms should have a nil breakdown")
	}

	// The request body carries the aggregation structure.
	if body["size"] != float64(0) {
		t.Errorf("size = %v, want 0", body["size"])
	}
	if body["track_total_hits"] != true {
		t.Error("track_total_hits should be set")
	}
	histogram := dig(t, body, "aggs", "histogram", "date_histogram")
	if histogram["fixed_interval"] != "1h" {
		t.Errorf("fixed_interval = %v", histogram["fixed_interval"])
	}
	terms := dig(t, body, "aggs", "histogram", "aggs", "breakdown", "terms")
	if terms["field"] != "service.keyword" {
		t.Errorf("terms field = %v", terms["field"])
	}
	timeRange := dig(t, body, "query", "range", "@timestamp")
	if timeRange["gte"] != "now-24h" || timeRange["lte"] != "now" {
		t.Errorf("range = %v", timeRange)
	}
}

func TestDayIntervalUsesCalendarBucketing(t *testing.T) {
	body := buildHistogramQuery(HistogramRequest{
		Index: "logs", TimeField: "@timestamp",
		From: "now-7d", To: "now", Interval: "1d",
	})
	histogram := dig(t, body, "aggs", "histogram", "date_histogram")
	if histogram["calendar_interval"] != "1d" {
		t.Errorf("1d should be a calendar interval: %v", histogram)
	}
	if _, fixed := histogram["fixed_interval"]; fixed {
		t.Error("calendar intervals must not also set fixed_interval")
	}
}

func TestFieldCapsFiltersAndSorts(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logs-app/_field_caps" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"fields": {
			"service.keyword": {"keyword": {"type": "keyword", "aggregatable": true}},
			"@timestamp": {"date": {"type": "date", "aggregatable": true}},
			"message": {"text": {"type": "text", "aggregatable": false}},
			"_id": {"_id": {"type": "_id", "aggregatable": false}}
		}}`))
	}))

	fields, err := client.FieldCaps(context.Background(), "logs-app")
	if err != nil {
		t.Fatalf("FieldCaps: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("fields = %+v, want 3 without internals", fields)
	}
	if fields[0].Name != "@timestamp" || fields[1].Name != "message" || fields[2].Name != "service.keyword" {
		t.Errorf("fields not sorted by name: %+v", fields)
	}
	if !fields[2].Aggregatable || fields[2].Type != "keyword" {
		t.Errorf("keyword field caps lost: %+v", fields[2])
	}
}

// dig walks nested map[string]any keys, failing the test on a missing
// step.
func dig(t *testing.T, root map[string]any, keys ...string) map[string]any {
	t.Helper()
	current := root
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			t.Fatalf("missing %q in %v", key, current)
		}
		current = next
	}
	return current
}
