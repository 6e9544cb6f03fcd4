// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package elastic is facet's Elasticsearch client: the handful of
// read-only operations the viewer needs (ping, field capabilities,
// date-histogram aggregations), with basic auth, bounded response
// reads, and typed errors decoded from the ES error body.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/facet-analytics/facet/lib/netutil"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the cluster endpoint (e.g. "http://localhost:9200").
	BaseURL string
	// Username and Password enable HTTP basic auth when non-empty.
	Username string
	Password string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// Client talks to one Elasticsearch cluster.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates the configuration and creates a client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("elastic: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("elastic: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		username:   config.Username,
		password:   config.Password,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Error is an Elasticsearch error response. All ES error bodies share
// the same JSON shape.
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("elasticsearch: %s (%d): %s", e.Type, e.StatusCode, e.Reason)
}

// IsError checks whether err is an *Error with the given type.
func IsError(err error, errorType string) bool {
	var esErr *Error
	if errors.As(err, &esErr) {
		return esErr.Type == errorType
	}
	return false
}

// errorEnvelope is the wrapper ES puts around error details.
type errorEnvelope struct {
	Error Error `json:"error"`
}

// doRequest performs one request against the cluster. Non-2xx
// responses decode into *Error; non-JSON error bodies fail loud with
// the raw body.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("elastic: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("elastic: creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		request.SetBasicAuth(c.username, c.password)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("elastic: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("elastic: reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	var envelope errorEnvelope
	if jsonErr := json.Unmarshal(responseBody, &envelope); jsonErr != nil || envelope.Error.Type == "" {
		return nil, fmt.Errorf("elastic: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	envelope.Error.StatusCode = response.StatusCode
	return responseBody, &envelope.Error
}

// Ping checks that the cluster is reachable and returns its version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return "", fmt.Errorf("elastic: ping failed: %w", err)
	}

	var response struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("elastic: parsing ping response: %w", err)
	}
	return response.Version.Number, nil
}
