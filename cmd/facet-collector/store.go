// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/sqlitepool"
	"github.com/facet-analytics/facet/lib/telemetry"
)

// dayFormat is the received-day partition key. Retention operates on
// whole days, so reports store the day rather than a timestamp.
const dayFormat = "2006-01-02"

// storeSchema is created on every connection. The counts rows cascade
// with their report row, which is what the retention sweep relies on.
const storeSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id           INTEGER PRIMARY KEY,
	install_id   TEXT NOT NULL,
	sequence     INTEGER NOT NULL,
	schema_hash  TEXT NOT NULL,
	received_day TEXT NOT NULL,
	UNIQUE (install_id, sequence)
);
CREATE INDEX IF NOT EXISTS reports_by_day ON reports (received_day);

CREATE TABLE IF NOT EXISTS counts (
	report_id     INTEGER NOT NULL REFERENCES reports (id) ON DELETE CASCADE,
	counter_group TEXT NOT NULL,
	counter_name  TEXT NOT NULL,
	value         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS counts_by_report ON counts (report_id);
`

// Store persists ingested usage reports.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// StoreConfig holds the parameters for opening a report store.
type StoreConfig struct {
	// Path is the SQLite database file. The parent directory must
	// exist.
	Path string

	// Clock provides the received day and retention cutoffs.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// RetentionConfig bounds how long ingested reports are kept.
type RetentionConfig struct {
	// Days is the number of whole days to keep. Reports received
	// before today minus Days are deleted.
	Days int
}

// DefaultRetention keeps reports for 90 days.
func DefaultRetention() RetentionConfig {
	return RetentionConfig{Days: 90}
}

// OpenStore opens the report store, creating the database and schema
// as needed.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("collector store: Clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   cfg.Path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, storeSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("collector store: %w", err)
	}

	return &Store{pool: pool, clock: cfg.Clock, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// InsertReport stores one decoded report and its counts in a single
// transaction. A report whose (install_id, sequence) was already
// stored is acknowledged without storing again; the return value
// reports whether this call stored anything.
func (s *Store) InsertReport(ctx context.Context, report *telemetry.Report) (stored bool, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return false, fmt.Errorf("collector store: begin: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO reports (install_id, sequence, schema_hash, received_day)
		 VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			report.InstallID,
			int64(report.Sequence),
			hex.EncodeToString(report.SchemaHash[:]),
			s.clock.Now().UTC().Format(dayFormat),
		}})
	if err != nil {
		return false, fmt.Errorf("collector store: insert report: %w", err)
	}
	if conn.Changes() == 0 {
		// Duplicate delivery, likely a reporter retry.
		return false, nil
	}

	reportID := conn.LastInsertRowID()
	for _, count := range report.Counts {
		err = sqlitex.Execute(conn,
			`INSERT INTO counts (report_id, counter_group, counter_name, value)
			 VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				reportID, count.Group, count.Name, count.Value,
			}})
		if err != nil {
			return false, fmt.Errorf("collector store: insert count %s.%s: %w", count.Group, count.Name, err)
		}
	}
	return true, nil
}

// RunRetention deletes reports received before the retention window.
// Count rows cascade with their report. Returns the number of deleted
// reports.
func (s *Store) RunRetention(ctx context.Context, retention RetentionConfig) (int, error) {
	if retention.Days <= 0 {
		retention = DefaultRetention()
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -retention.Days).Format(dayFormat)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM reports WHERE received_day < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return 0, fmt.Errorf("collector store: retention delete: %w", err)
	}
	deleted := conn.Changes()
	if deleted > 0 {
		s.logger.Info("retention sweep deleted reports",
			"cutoff_day", cutoff,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// StoreStats is the aggregate view served by /v1/status.
type StoreStats struct {
	Reports      int64  `json:"reports"`
	Counts       int64  `json:"counts"`
	Installs     int64  `json:"installs"`
	OldestDay    string `json:"oldest_day,omitempty"`
	NewestDay    string `json:"newest_day,omitempty"`
	TotalCounted int64  `json:"total_counted"`
}

// Stats computes the aggregate ingest statistics.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	stats := &StoreStats{}
	err = sqlitex.Execute(conn,
		`SELECT COUNT(*), COUNT(DISTINCT install_id),
		        COALESCE(MIN(received_day), ''), COALESCE(MAX(received_day), '')
		 FROM reports`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			stats.Reports = stmt.ColumnInt64(0)
			stats.Installs = stmt.ColumnInt64(1)
			stats.OldestDay = stmt.ColumnText(2)
			stats.NewestDay = stmt.ColumnText(3)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("collector store: report stats: %w", err)
	}

	err = sqlitex.Execute(conn,
		`SELECT COUNT(*), COALESCE(SUM(value), 0) FROM counts`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			stats.Counts = stmt.ColumnInt64(0)
			stats.TotalCounted = stmt.ColumnInt64(1)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("collector store: count stats: %w", err)
	}
	return stats, nil
}

// sweepRetention runs the retention sweep on a ticker until ctx is
// cancelled. One sweep runs immediately on startup so a long-stopped
// collector catches up without waiting a full interval.
func sweepRetention(ctx context.Context, store *Store, retention RetentionConfig, interval time.Duration, logger *slog.Logger) {
	if _, err := store.RunRetention(ctx, retention); err != nil {
		logger.Error("retention sweep failed", "error", err)
	}

	ticker := store.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.RunRetention(ctx, retention); err != nil {
				logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}
