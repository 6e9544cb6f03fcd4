// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool used by the
// facet collector.
//
// It wraps zombiezen.com/go/sqlite with the pragmas the collector
// needs: WAL journal mode so report ingest and retention sweeps do not
// block status reads, NORMAL synchronous for process-crash durability
// without an fsync per commit, enforced foreign keys so deleting a
// report row drops its counts, and a busy timeout to absorb write
// contention.
//
// The pool is built on zombiezen's sqlitex.Pool. Callers [Pool.Take] a
// connection, perform work, and [Pool.Put] it back. Connections are
// not safe for concurrent use; each goroutine holds its own for the
// duration of its work.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: concurrent readers with a single writer.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across power failure, which is acceptable because
//     reporters resend unacknowledged telemetry.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock
//     instead of returning SQLITE_BUSY immediately.
//   - foreign_keys=ON: count rows cascade when their report row is
//     deleted by the retention sweep.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped reads.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/facet-collector/reports.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// The package is intentionally thin: standard pragmas, the zombiezen
// types exposed directly, no query builder. Callers write SQL, use
// sqlitex.Execute for cached statements, and manage transactions with
// sqlitex.ImmediateTransaction.
package sqlitepool
