// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/telemetry"
)

// Collector is the HTTP surface of the collection service: report
// ingest, the counter schema, and aggregate status.
//
// Ingest counters use atomics so the status handler reads them
// without locking while ingest requests write concurrently.
type Collector struct {
	store     *Store
	schema    telemetry.Schema
	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time

	reportsAccepted   atomic.Uint64
	reportsDuplicated atomic.Uint64
	reportsRejected   atomic.Uint64
}

// NewCollector creates the collector around an open store.
func NewCollector(store *Store, schema telemetry.Schema, clk clock.Clock, logger *slog.Logger) *Collector {
	return &Collector{
		store:     store,
		schema:    schema,
		clock:     clk,
		logger:    logger,
		startedAt: clk.Now(),
	}
}

// Handler returns the collector's route table.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/report", c.handleReport)
	mux.HandleFunc("GET /v1/schema", c.handleSchema)
	mux.HandleFunc("GET /v1/status", c.handleStatus)
	return mux
}

// reportResponse acknowledges an ingested report. Duplicate is set
// when the (install_id, sequence) pair was already stored.
type reportResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// errorResponse is the JSON body of every rejection.
type errorResponse struct {
	Error string `json:"error"`
}

// handleReport ingests one envelope-wrapped CBOR report. Counters the
// schema does not declare reject the whole report with 422, naming
// the first offender.
func (c *Collector) handleReport(w http.ResponseWriter, r *http.Request) {
	// The envelope bounds the uncompressed payload; the reader bounds
	// what is accepted off the wire before decoding starts.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, telemetry.MaxEnvelopePayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.reject(w, http.StatusRequestEntityTooLarge, "report exceeds the payload bound")
			return
		}
		c.reject(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}

	report, err := telemetry.DecodeEnvelope(body)
	if err != nil {
		c.reject(w, http.StatusBadRequest, err.Error())
		return
	}
	if report.InstallID == "" {
		c.reject(w, http.StatusUnprocessableEntity, "report has no install_id")
		return
	}
	for _, count := range report.Counts {
		if _, declared := c.schema.Lookup(count.Group, count.Name); !declared {
			c.reject(w, http.StatusUnprocessableEntity,
				"undeclared counter "+count.Group+"."+count.Name)
			return
		}
	}

	stored, err := c.store.InsertReport(r.Context(), report)
	if err != nil {
		c.logger.Error("report insert failed",
			"install_id", report.InstallID,
			"sequence", report.Sequence,
			"error", err,
		)
		c.reject(w, http.StatusInternalServerError, "storing report failed")
		return
	}

	if stored {
		c.reportsAccepted.Add(1)
	} else {
		c.reportsDuplicated.Add(1)
	}
	c.logger.Info("report ingested",
		"install_id", report.InstallID,
		"sequence", report.Sequence,
		"counts", len(report.Counts),
		"duplicate", !stored,
	)
	writeJSON(w, http.StatusOK, reportResponse{Status: "ok", Duplicate: !stored})
}

// handleSchema serves the canonical counter schema. Clients and the
// pipeline diff it against their own copy.
func (c *Collector) handleSchema(w http.ResponseWriter, r *http.Request) {
	data, err := c.schema.CanonicalJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "encoding schema failed"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// statusResponse carries aggregate operational stats only, nothing
// per-installation.
type statusResponse struct {
	ReportsAccepted   uint64      `json:"reports_accepted"`
	ReportsDuplicated uint64      `json:"reports_duplicated"`
	ReportsRejected   uint64      `json:"reports_rejected"`
	UptimeSeconds     float64     `json:"uptime_seconds"`
	Store             *StoreStats `json:"store"`
}

func (c *Collector) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := c.store.Stats(r.Context())
	if err != nil {
		c.logger.Error("status stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "computing stats failed"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		ReportsAccepted:   c.reportsAccepted.Load(),
		ReportsDuplicated: c.reportsDuplicated.Load(),
		ReportsRejected:   c.reportsRejected.Load(),
		UptimeSeconds:     c.clock.Now().Sub(c.startedAt).Seconds(),
		Store:             stats,
	})
}

// reject refuses an ingest request and counts the rejection.
func (c *Collector) reject(w http.ResponseWriter, status int, message string) {
	c.reportsRejected.Add(1)
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
