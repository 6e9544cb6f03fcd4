// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// The facet-collector command is the usage-report collection service.
// It ingests envelope-wrapped CBOR reports from facet installations,
// validates them against the counter schema, stores them in SQLite,
// and serves the schema and aggregate status over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/facet-analytics/facet/lib/cli"
	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/telemetry"
	"github.com/facet-analytics/facet/lib/version"
)

// retentionSweepInterval is how often the retention sweep runs.
// Retention operates on whole days, so hourly is already generous.
const retentionSweepInterval = time.Hour

func main() {
	if err := run(); err != nil {
		cli.Fprint(os.Stderr, err)
		code := 1
		var exiter interface{ ExitCode() int }
		if errors.As(err, &exiter) {
			code = exiter.ExitCode()
		}
		os.Exit(code)
	}
}

func run() error {
	for _, argument := range os.Args[1:] {
		if argument == "--version" {
			version.Print("facet-collector")
			return nil
		}
	}

	flags := pflag.NewFlagSet("facet-collector", pflag.ContinueOnError)
	listen := flags.String("listen", ":8787", "address to serve HTTP on")
	databasePath := flags.String("db", "facet-collector.db", "SQLite database file")
	retentionDays := flags.Int("retention-days", DefaultRetention().Days, "days to keep ingested reports")
	flags.Bool("version", false, "print version information and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: facet-collector [flags]

Runs the facet usage-report collection service.

Endpoints:
  POST /v1/report   ingest one envelope-wrapped CBOR report
  GET  /v1/schema   the declared counter schema (JSON)
  GET  /v1/status   aggregate ingest statistics (JSON)

Flags:
%s`, flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return cli.Validation("%v", err)
	}
	if flags.NArg() > 0 {
		return cli.Validation("unexpected arguments: %v", flags.Args())
	}
	if *retentionDays <= 0 {
		return cli.Validation("--retention-days must be positive, got %d", *retentionDays).
			WithHint("Omit the flag to keep the default of %d days.", DefaultRetention().Days)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realClock := clock.Real()
	store, err := OpenStore(StoreConfig{
		Path:   *databasePath,
		Clock:  realClock,
		Logger: logger,
	})
	if err != nil {
		return cli.Internal("opening report store: %w", err)
	}
	defer store.Close()

	collector := NewCollector(store, telemetry.Usage, realClock, logger)
	server := &http.Server{
		Addr:    *listen,
		Handler: collector.Handler(),
	}

	go sweepRetention(ctx, store, RetentionConfig{Days: *retentionDays}, retentionSweepInterval, logger)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.ListenAndServe()
	}()

	logger.Info("collector running",
		"listen", *listen,
		"db", *databasePath,
		"retention_days", *retentionDays,
	)

	select {
	case err := <-serveDone:
		return cli.Internal("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	// Drain in-flight ingest requests before closing the store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "error", err)
	}
	return nil
}
