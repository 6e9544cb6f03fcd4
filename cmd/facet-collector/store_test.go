// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/telemetry"
)

func openTestStore(t *testing.T, clk clock.Clock) *Store {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		Path:   filepath.Join(t.TempDir(), "reports.db"),
		Clock:  clk,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func testReport(sequence uint64) *telemetry.Report {
	hash, _ := telemetry.Usage.Hash()
	return &telemetry.Report{
		InstallID:   "00112233445566778899aabbccddeeff",
		Sequence:    sequence,
		CollectedAt: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		SchemaHash:  hash,
		Counts: []telemetry.Count{
			{Group: "panel", Name: "opened", Value: 1},
			{Group: "query", Name: "hits_reported", Value: 1234},
		},
	}
}

func TestInsertReportStoresCounts(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	store := openTestStore(t, fake)

	stored, err := store.InsertReport(context.Background(), testReport(1))
	if err != nil {
		t.Fatalf("InsertReport: %v", err)
	}
	if !stored {
		t.Fatal("first delivery should store")
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Reports != 1 || stats.Counts != 2 || stats.Installs != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalCounted != 1235 {
		t.Errorf("total counted = %d, want 1235", stats.TotalCounted)
	}
	if stats.OldestDay != "2026-08-24" || stats.NewestDay != "2026-08-24" {
		t.Errorf("day range = %q..%q", stats.OldestDay, stats.NewestDay)
	}
}

func TestInsertReportIsIdempotent(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	store := openTestStore(t, fake)

	if _, err := store.InsertReport(context.Background(), testReport(7)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	stored, err := store.InsertReport(context.Background(), testReport(7))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if stored {
		t.Error("duplicate (install_id, sequence) should not store again")
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Reports != 1 || stats.Counts != 2 {
		t.Errorf("duplicate delivery double-stored: %+v", stats)
	}
}

func TestRetentionDeletesOldReportsAndCascades(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	store := openTestStore(t, fake)

	if _, err := store.InsertReport(context.Background(), testReport(1)); err != nil {
		t.Fatalf("old insert: %v", err)
	}

	// 100 days later, a fresh report arrives and the sweep runs.
	fake.Advance(100 * 24 * time.Hour)
	if _, err := store.InsertReport(context.Background(), testReport(2)); err != nil {
		t.Fatalf("new insert: %v", err)
	}

	deleted, err := store.RunRetention(context.Background(), RetentionConfig{Days: 90})
	if err != nil {
		t.Fatalf("RunRetention: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Reports != 1 {
		t.Errorf("reports = %d, want 1", stats.Reports)
	}
	// Counts must cascade with the deleted report.
	if stats.Counts != 2 {
		t.Errorf("counts = %d, want 2 after cascade", stats.Counts)
	}
}

func TestRetentionKeepsReportsInsideWindow(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	store := openTestStore(t, fake)

	if _, err := store.InsertReport(context.Background(), testReport(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	fake.Advance(24 * time.Hour)

	deleted, err := store.RunRetention(context.Background(), RetentionConfig{Days: 90})
	if err != nil {
		t.Fatalf("RunRetention: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}
