// Package metrics provides Prometheus collectors for nebula-crm and a small
// per-component counter set that connectors expose through Metrics().
//
// # Basic Usage
//
//	metrics.PagesFetched.WithLabelValues("orders", "ok").Inc()
//	metrics.RecordsWritten.WithLabelValues("contacts", "created").Inc()
//
//	collector := metrics.NewCollector("orders")
//	collector.Inc("records_read", 1)
//	snapshot := collector.GetAll()
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts page fetches per source.
	// Labels: connector, outcome (ok/error)
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_pages_fetched_total",
			Help: "Total number of pages fetched by sources",
		},
		[]string{"connector", "outcome"},
	)

	// RecordsRead counts records emitted by sources.
	RecordsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_records_read_total",
			Help: "Total number of records emitted by sources",
		},
		[]string{"connector"},
	)

	// RecordsWritten counts destination outcomes per CRM entity.
	// Labels: entity, outcome (created/updated/skipped/failed)
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_records_written_total",
			Help: "Total number of records handled by destinations",
		},
		[]string{"entity", "outcome"},
	)

	// RequestLatency tracks remote call latency in seconds.
	// Labels: method, status (HTTP status code, or "error" for transport failures)
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_http_request_duration_seconds",
			Help:    "Remote request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "status"},
	)

	// InFlightRequests tracks requests currently waiting on the remote.
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebula_http_requests_in_flight",
			Help: "Remote requests currently in flight",
		},
	)

	// Throughput tracks records per second for the last completed sync.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_throughput_records_per_second",
			Help: "Records per second of the last completed sync",
		},
		[]string{"source", "destination"},
	)
)

// Collector keeps named counters for one component so they can be reported
// without scraping Prometheus. Safe for concurrent use.
type Collector struct {
	name      string
	startTime time.Time

	mu     sync.Mutex
	counts map[string]int64
}

// NewCollector creates a new metrics collector for a component.
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		startTime: time.Now(),
		counts:    make(map[string]int64),
	}
}

// Inc adds delta to the named counter.
func (c *Collector) Inc(name string, delta int64) {
	c.mu.Lock()
	c.counts[name] += delta
	c.mu.Unlock()
}

// Get returns the named counter.
func (c *Collector) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Reset zeroes every counter and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.counts = make(map[string]int64)
	c.startTime = time.Now()
	c.mu.Unlock()
}

// Names returns the counter names in sorted order.
func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.counts))
	for k := range c.counts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// GetAll returns every counter plus the component name and uptime.
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]interface{}, len(c.counts)+2)
	for k, v := range c.counts {
		out[k] = v
	}
	out["component"] = c.name
	out["uptime_seconds"] = time.Since(c.startTime).Seconds()
	return out
}

// StartTime returns when the collector was created or last reset
func (c *Collector) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// Timer measures an operation's duration from creation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}
