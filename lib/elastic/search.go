// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/facet-analytics/facet/lib/panelui"
)

// defaultBreakdownSize is the number of terms the breakdown
// sub-aggregation keeps per bucket.
const defaultBreakdownSize = 5

// HistogramRequest describes one date-histogram aggregation.
type HistogramRequest struct {
	Index     string
	TimeField string
	// From and To are Elasticsearch date math expressions
	// ("now-24h", "2026-03-01", ...).
	From string
	To   string
	// Interval is a bucket interval. Day and week intervals use
	// calendar bucketing, finer ones fixed bucketing.
	Interval string
	// Breakdown is an optional keyword field for a terms
	// sub-aggregation.
	Breakdown string
	// BreakdownSize caps the terms per bucket; 0 means the default.
	BreakdownSize int
}

// HistogramResult is the decoded aggregation response.
type HistogramResult struct {
	Total   int64
	Buckets []panelui.Bucket
	Took    time.Duration
}

// searchResponse mirrors the slice of the _search response facet
// reads.
type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
	} `json:"hits"`
	Aggregations struct {
		Histogram struct {
			Buckets []struct {
				Key      int64 `json:"key"`
				DocCount int64 `json:"doc_count"`
				Breakdown struct {
					Buckets []struct {
						Key      string `json:"key"`
						DocCount int64  `json:"doc_count"`
					} `json:"buckets"`
				} `json:"breakdown"`
			} `json:"buckets"`
		} `json:"histogram"`
	} `json:"aggregations"`
}

// DateHistogram runs the aggregation and decodes the buckets.
func (c *Client) DateHistogram(ctx context.Context, request HistogramRequest) (*HistogramResult, error) {
	if request.Index == "" {
		return nil, fmt.Errorf("elastic: histogram index is required")
	}
	if request.TimeField == "" {
		return nil, fmt.Errorf("elastic: histogram time field is required")
	}
	if request.Interval == "" {
		return nil, fmt.Errorf("elastic: histogram interval is required")
	}

	body := buildHistogramQuery(request)
	path := "/" + url.PathEscape(request.Index) + "/_search"
	responseBody, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("elastic: parsing search response: %w", err)
	}

	result := &HistogramResult{
		Total: response.Hits.Total.Value,
		Took:  time.Duration(response.Took) * time.Millisecond,
	}
	for _, raw := range response.Aggregations.Histogram.Buckets {
		bucket := panelui.Bucket{
			Start: time.UnixMilli(raw.Key).UTC(),
			Count: raw.DocCount,
		}
		for _, term := range raw.Breakdown.Buckets {
			bucket.Breakdown = append(bucket.Breakdown, panelui.SeriesCount{
				Name:  term.Key,
				Count: term.DocCount,
			})
		}
		result.Buckets = append(result.Buckets, bucket)
	}
	return result, nil
}

// buildHistogramQuery assembles the _search body: size 0, a range
// filter on the time field, the date_histogram aggregation, and an
// optional terms sub-aggregation for the breakdown.
func buildHistogramQuery(request HistogramRequest) map[string]any {
	histogram := map[string]any{
		"field":         request.TimeField,
		"min_doc_count": 0,
	}
	// Calendar intervals handle month and DST boundaries; ES rejects
	// them as fixed intervals.
	if strings.HasSuffix(request.Interval, "d") || strings.HasSuffix(request.Interval, "w") {
		histogram["calendar_interval"] = request.Interval
	} else {
		histogram["fixed_interval"] = request.Interval
	}

	aggregation := map[string]any{
		"date_histogram": histogram,
	}
	if request.Breakdown != "" {
		size := request.BreakdownSize
		if size <= 0 {
			size = defaultBreakdownSize
		}
		aggregation["aggs"] = map[string]any{
			"breakdown": map[string]any{
				"terms": map[string]any{
					"field": request.Breakdown,
					"size":  size,
				},
			},
		}
	}

	return map[string]any{
		"size":             0,
		"track_total_hits": true,
		"query": map[string]any{
			"range": map[string]any{
				request.TimeField: map[string]any{
					"gte": request.From,
					"lte": request.To,
				},
			},
		},
		"aggs": map[string]any{
			"histogram": aggregation,
		},
	}
}

// FieldCaps returns the index's fields, sorted by name. Internal
// fields (leading underscore) are dropped.
func (c *Client) FieldCaps(ctx context.Context, index string) ([]panelui.Field, error) {
	if index == "" {
		return nil, fmt.Errorf("elastic: field caps index is required")
	}

	path := "/" + url.PathEscape(index) + "/_field_caps?fields=*"
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Fields map[string]map[string]struct {
			Type         string `json:"type"`
			Aggregatable bool   `json:"aggregatable"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("elastic: parsing field caps response: %w", err)
	}

	var fields []panelui.Field
	for name, types := range response.Fields {
		if strings.HasPrefix(name, "_") {
			continue
		}
		// A field usually has one type entry; conflicting indices
		// report several, in which case take any aggregatable one.
		for fieldType, capability := range types {
			fields = append(fields, panelui.Field{
				Name:         name,
				Type:         fieldType,
				Aggregatable: capability.Aggregatable,
			})
			break
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}
