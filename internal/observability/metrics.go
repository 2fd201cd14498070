package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	startedAt    time.Time
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:    time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Counter is one row of a metrics snapshot.
type Counter struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms,omitempty"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds int64     `json:"uptime_seconds"`
	Requests      []Counter `json:"requests"`
	Errors        []Counter `json:"errors"`
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Requests: []Counter{}, Errors: []Counter{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.startedAt) / time.Second),
		Requests:      make([]Counter, 0, len(m.requestCount)),
		Errors:        make([]Counter, 0, len(m.errorCount)),
	}
	for key, count := range m.requestCount {
		row := Counter{Key: key, Count: count}
		if count > 0 {
			row.AvgMillis = float64(m.latencyTotal[key].Microseconds()) / 1000 / float64(count)
		}
		snap.Requests = append(snap.Requests, row)
	}
	for key, count := range m.errorCount {
		snap.Errors = append(snap.Errors, Counter{Key: key, Count: count})
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	sort.Slice(snap.Errors, func(i, j int) bool { return snap.Errors[i].Key < snap.Errors[j].Key })
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
