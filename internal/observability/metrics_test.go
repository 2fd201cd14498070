package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/tickets", "GET", "UPSTREAM_ERROR")

	snap := m.Snapshot()
	if len(snap.Requests) != 1 {
		t.Fatalf("expected one request counter, got %d", len(snap.Requests))
	}
	row := snap.Requests[0]
	if row.Key != "/api/tickets|GET|200" || row.Count != 2 {
		t.Errorf("unexpected counter %+v", row)
	}
	if row.AvgMillis != 20 {
		t.Errorf("expected 20ms average, got %v", row.AvgMillis)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Key != "/api/tickets|GET|UPSTREAM_ERROR" {
		t.Errorf("unexpected errors %+v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
