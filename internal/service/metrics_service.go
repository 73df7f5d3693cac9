package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

// Routine write outcomes recorded by ObserveRoutineWrite.
const (
	OutcomeCommitted   = "committed"
	OutcomeConflict    = "conflict"
	OutcomeConcurrency = "concurrency"
	OutcomeError       = "error"
)

// MetricsSnapshot aggregates counters for the JSON metrics summary endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64                         `json:"requests_total"`
	AverageRequestDurationMs float64                        `json:"average_request_duration_ms"`
	CacheHits                uint64                         `json:"cache_hits"`
	CacheMisses              uint64                         `json:"cache_misses"`
	CacheHitRatio            float64                        `json:"cache_hit_ratio"`
	ConflictsDetected        map[models.ConflictType]uint64 `json:"conflicts_detected"`
	Goroutines               int                            `json:"goroutines"`
	GeneratedAt              time.Time                      `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	conflictsDetected *prometheus.CounterVec
	routineWrites     *prometheus.CounterVec
	detectDuration    prometheus.Observer

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	conflictCounts       map[models.ConflictType]*uint64
}

var trackedConflictTypes = []models.ConflictType{
	models.ConflictTeacherDoubleBooking,
	models.ConflictClassroomDoubleBooking,
	models.ConflictClassDoubleBooking,
	models.ConflictTimeSlotOverlap,
	models.ConflictTeacherUnavailable,
	models.ConflictClassroomCapacityExceeded,
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflicts_detected_total",
		Help: "Conflicts reported by the detection engine",
	}, []string{"type"})

	routineWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routine_writes_total",
		Help: "Routine create/update/delete attempts by outcome",
	}, []string{"operation", "outcome"})

	detectDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "conflict_detection_duration_seconds",
		Help:    "Duration of conflict detection runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, conflictsDetected, routineWrites, detectDuration, goroutines)

	counts := make(map[models.ConflictType]*uint64, len(trackedConflictTypes))
	for _, t := range trackedConflictTypes {
		counts[t] = new(uint64)
	}

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		conflictsDetected: conflictsDetected,
		routineWrites:     routineWrites,
		detectDuration:    detectDuration,
		conflictCounts:    counts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordConflicts counts detected conflicts per type and the detection latency.
func (m *MetricsService) RecordConflicts(conflicts []models.Conflict, duration time.Duration) {
	if m == nil {
		return
	}
	m.detectDuration.Observe(duration.Seconds())
	for _, conflict := range conflicts {
		m.conflictsDetected.WithLabelValues(string(conflict.Type)).Inc()
		if counter, ok := m.conflictCounts[conflict.Type]; ok {
			atomic.AddUint64(counter, 1)
		}
	}
}

// ObserveRoutineWrite counts a routine write attempt by operation and outcome.
func (m *MetricsService) ObserveRoutineWrite(operation, outcome string) {
	if m == nil {
		return
	}
	m.routineWrites.WithLabelValues(operation, outcome).Inc()
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	conflicts := make(map[models.ConflictType]uint64, len(m.conflictCounts))
	for t, counter := range m.conflictCounts {
		conflicts[t] = atomic.LoadUint64(counter)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            cacheRatio,
		ConflictsDetected:        conflicts,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
