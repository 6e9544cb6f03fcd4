// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/netutil"
)

// collectorStub records the reports a Reporter ships to it.
type collectorStub struct {
	server   *httptest.Server
	failing  atomic.Bool
	received chan *Report
}

func newCollectorStub(t *testing.T) *collectorStub {
	t.Helper()
	stub := &collectorStub{received: make(chan *Report, 16)}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if stub.failing.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		body, err := netutil.ReadResponse(r.Body)
		if err != nil {
			t.Errorf("reading report body: %v", err)
			return
		}
		report, err := DecodeEnvelope(body)
		if err != nil {
			t.Errorf("decoding envelope: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stub.received <- report
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func newTestReporter(t *testing.T, stub *collectorStub, recorder *Recorder, clk clock.Clock) *Reporter {
	t.Helper()
	reporter, err := NewReporter(ReporterConfig{
		Recorder:  recorder,
		Endpoint:  stub.server.URL,
		InstallID: "00112233445566778899aabbccddeeff",
		Interval:  time.Minute,
		Clock:     clk,
		Logger:    slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatal(err)
	}
	return reporter
}

func TestReporterFlushShipsDrainedCounts(t *testing.T) {
	stub := newCollectorStub(t)
	recorder := NewRecorder(Usage)
	recorder.Increment("panel", "opened")
	recorder.Add("query", "hits_reported", 5)

	reporter := newTestReporter(t, stub, recorder, clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	reporter.Flush(context.Background())

	select {
	case report := <-stub.received:
		if report.Sequence != 1 {
			t.Errorf("sequence = %d, want 1", report.Sequence)
		}
		if len(report.Counts) != 2 {
			t.Errorf("counts = %+v", report.Counts)
		}
		wantHash, _ := Usage.Hash()
		if report.SchemaHash != wantHash {
			t.Error("report should carry the usage schema hash")
		}
	default:
		t.Fatal("collector received nothing")
	}

	if counts := recorder.Snapshot(); len(counts) != 0 {
		t.Errorf("recorder should be drained after a successful ship, got %+v", counts)
	}
}

func TestReporterFlushSkipsEmptyDrain(t *testing.T) {
	stub := newCollectorStub(t)
	reporter := newTestReporter(t, stub, NewRecorder(Usage), clock.Fake(time.Now()))
	reporter.Flush(context.Background())

	select {
	case <-stub.received:
		t.Fatal("empty drain must ship nothing")
	default:
	}
}

func TestReporterRemergesOnFailure(t *testing.T) {
	stub := newCollectorStub(t)
	stub.failing.Store(true)

	recorder := NewRecorder(Usage)
	recorder.Add("query", "issued", 3)
	reporter := newTestReporter(t, stub, recorder, clock.Fake(time.Now()))

	reporter.Flush(context.Background())
	counts := recorder.Snapshot()
	if len(counts) != 1 || counts[0].Value != 3 {
		t.Fatalf("failed ship must re-merge counts, got %+v", counts)
	}

	// Recovery: the next flush ships the restored counts.
	stub.failing.Store(false)
	reporter.Flush(context.Background())
	select {
	case report := <-stub.received:
		if len(report.Counts) != 1 || report.Counts[0].Value != 3 {
			t.Errorf("recovered report counts = %+v", report.Counts)
		}
		// Sequence advanced past the failed attempt.
		if report.Sequence != 2 {
			t.Errorf("sequence = %d, want 2", report.Sequence)
		}
	default:
		t.Fatal("recovered flush shipped nothing")
	}
}

func TestReporterRunFlushesOnInterval(t *testing.T) {
	stub := newCollectorStub(t)
	recorder := NewRecorder(Usage)
	fake := clock.Fake(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	reporter := newTestReporter(t, stub, recorder, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		reporter.Run(ctx)
		close(done)
	}()

	// Let Run register its ticker before advancing.
	waitForWaiter(t, fake)

	recorder.Increment("panel", "opened")
	fake.Advance(time.Minute)

	select {
	case report := <-stub.received:
		if len(report.Counts) != 1 {
			t.Errorf("interval flush counts = %+v", report.Counts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("interval flush never shipped")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on cancel")
	}
}

// waitForWaiter polls until the fake clock has a registered waiter.
func waitForWaiter(t *testing.T, fake *clock.FakeClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(fake.PendingWaiters()) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("ticker never registered on the fake clock")
}

func TestInstallIDCreateAndReload(t *testing.T) {
	path := t.TempDir() + "/config/install_id"

	first, err := LoadOrCreateInstallID(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 32 {
		t.Errorf("install ID %q should be 32 hex characters", first)
	}

	second, err := LoadOrCreateInstallID(path)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("reload must return the stored ID")
	}
}
