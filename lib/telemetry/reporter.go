// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/netutil"
)

// ReporterConfig configures a Reporter. Recorder, Endpoint, and
// InstallID are required; everything else has defaults.
type ReporterConfig struct {
	// Recorder is drained on each shipping interval.
	Recorder *Recorder

	// Endpoint is the collector base URL; POST {Endpoint}/v1/report.
	Endpoint string

	// InstallID identifies this installation in reports.
	InstallID string

	// Interval between ship attempts. Defaults to 5 minutes.
	Interval time.Duration

	// Compression for the report envelope. Defaults to zstd.
	Compression CompressionTag

	// Clock drives the interval; tests inject a fake. Defaults to
	// clock.Real().
	Clock clock.Clock

	// HTTPClient for the POST. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger for ship failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Reporter ships drained usage counts to the collection service in
// the background. On ship failure the counts are merged back into the
// recorder so nothing is lost; telemetry never surfaces errors to the
// UI beyond a log line.
type Reporter struct {
	recorder    *Recorder
	endpoint    string
	installID   string
	interval    time.Duration
	compression CompressionTag
	clock       clock.Clock
	httpClient  *http.Client
	logger      *slog.Logger

	schemaHash [32]byte
	sequence   uint64
}

// NewReporter validates the configuration and creates a reporter.
// The caller runs it with Run and flushes once more on exit.
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("telemetry: Recorder is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("telemetry: Endpoint is required")
	}
	if cfg.InstallID == "" {
		return nil, fmt.Errorf("telemetry: InstallID is required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	compression := cfg.Compression
	if compression == CompressionNone {
		compression = CompressionZstd
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schemaHash, err := Usage.Hash()
	if err != nil {
		return nil, err
	}

	return &Reporter{
		recorder:    cfg.Recorder,
		endpoint:    cfg.Endpoint,
		installID:   cfg.InstallID,
		interval:    interval,
		compression: compression,
		clock:       clk,
		httpClient:  httpClient,
		logger:      logger,
		schemaHash:  schemaHash,
	}, nil
}

// Run ships on the configured interval until ctx is cancelled, then
// returns. The final drain is the caller's job (Flush on exit), so a
// cancelled interval never loses counts.
func (reporter *Reporter) Run(ctx context.Context) {
	ticker := reporter.clock.NewTicker(reporter.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reporter.Flush(ctx)
		}
	}
}

// Flush drains the recorder and ships one report. An empty drain
// ships nothing. Failures are logged and the counts merged back.
func (reporter *Reporter) Flush(ctx context.Context) {
	counts := reporter.recorder.Drain()
	if len(counts) == 0 {
		return
	}

	reporter.sequence++
	report := &Report{
		InstallID:   reporter.installID,
		Sequence:    reporter.sequence,
		CollectedAt: reporter.clock.Now().UTC(),
		SchemaHash:  reporter.schemaHash,
		Counts:      counts,
	}

	if err := reporter.ship(ctx, report); err != nil {
		reporter.recorder.Merge(counts)
		reporter.logger.Warn("usage report ship failed, counts re-merged",
			"sequence", report.Sequence,
			"counts", len(counts),
			"error", err,
		)
		return
	}

	reporter.logger.Debug("usage report shipped",
		"sequence", report.Sequence,
		"counts", len(counts),
	)
}

// ship encodes and POSTs one report envelope.
func (reporter *Reporter) ship(ctx context.Context, report *Report) error {
	envelope, err := EncodeEnvelope(report, reporter.compression)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		reporter.endpoint+"/v1/report", bytes.NewReader(envelope))
	if err != nil {
		return fmt.Errorf("telemetry: creating report request: %w", err)
	}
	request.Header.Set("Content-Type", "application/octet-stream")

	response, err := reporter.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("telemetry: posting report: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("telemetry: collector returned %d: %s",
			response.StatusCode, netutil.ErrorBody(response.Body))
	}
	return nil
}
