package clients

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/nebula-crm/pkg/metrics"
)

// HTTPMetrics tracks request counts and latency for one client and mirrors
// every observation into the process-wide Prometheus collectors.
type HTTPMetrics struct {
	totalRequests  int64
	failedRequests int64
	totalLatency   int64 // nanoseconds

	mu          sync.Mutex
	byStatus    map[int]int64
	maxLatency  time.Duration
	lastRequest time.Time
}

// NewHTTPMetrics creates an empty HTTP metrics tracker.
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{byStatus: make(map[int]int64)}
}

// RecordRequest records one completed call. status is 0 when the request
// never produced a response.
func (hm *HTTPMetrics) RecordRequest(method string, status int, latency time.Duration) {
	atomic.AddInt64(&hm.totalRequests, 1)
	atomic.AddInt64(&hm.totalLatency, int64(latency))

	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	if status == 0 || status >= 400 {
		atomic.AddInt64(&hm.failedRequests, 1)
	}
	metrics.RequestLatency.WithLabelValues(method, label).Observe(latency.Seconds())

	hm.mu.Lock()
	hm.byStatus[status]++
	if latency > hm.maxLatency {
		hm.maxLatency = latency
	}
	hm.lastRequest = time.Now()
	hm.mu.Unlock()
}

// Snapshot returns the current statistics.
func (hm *HTTPMetrics) Snapshot() HTTPStats {
	total := atomic.LoadInt64(&hm.totalRequests)
	failed := atomic.LoadInt64(&hm.failedRequests)

	stats := HTTPStats{
		TotalRequests:  total,
		FailedRequests: failed,
		ByStatus:       make(map[int]int64),
	}
	if total > 0 {
		stats.SuccessRate = float64(total-failed) / float64(total) * 100
		stats.AverageLatency = time.Duration(atomic.LoadInt64(&hm.totalLatency) / total)
	}

	hm.mu.Lock()
	for k, v := range hm.byStatus {
		stats.ByStatus[k] = v
	}
	stats.MaxLatency = hm.maxLatency
	stats.LastRequest = hm.lastRequest
	hm.mu.Unlock()
	return stats
}

// HTTPStats represents HTTP client statistics
type HTTPStats struct {
	TotalRequests  int64         `json:"total_requests"`
	FailedRequests int64         `json:"failed_requests"`
	SuccessRate    float64       `json:"success_rate"`
	AverageLatency time.Duration `json:"average_latency"`
	MaxLatency     time.Duration `json:"max_latency"`
	LastRequest    time.Time     `json:"last_request"`
	ByStatus       map[int]int64 `json:"by_status"`
}
