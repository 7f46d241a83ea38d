package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/acadops-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and scheduling pipeline outcomes.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	fanoutSessions  *prometheus.CounterVec
	fanoutConflicts *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	lockContention  prometheus.Counter
	exportDuration  *prometheus.HistogramVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	fanoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_fanout_sessions_total",
		Help: "Sessions updated by pattern fan-out",
	}, []string{"dimension"})

	fanoutConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_fanout_conflicts_total",
		Help: "Conflicts reported by resource pattern fan-out",
	}, []string{"reason"})

	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflict_resolutions_total",
		Help: "Conflict resolution attempts by mode and outcome",
	}, []string{"mode", "outcome"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_submissions_total",
		Help: "Submit and review transitions by outcome",
	}, []string{"outcome"})

	lockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_lock_contention_total",
		Help: "Mutations rejected because another operation held the draft",
	})

	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_export_duration_seconds",
		Help:    "Time spent rendering schedule exports",
		Buckets: prometheus.DefBuckets,
	}, []string{"format", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		fanoutSessions, fanoutConflicts, resolutions, submissions, lockContention, exportDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		fanoutSessions:  fanoutSessions,
		fanoutConflicts: fanoutConflicts,
		resolutions:     resolutions,
		submissions:     submissions,
		lockContention:  lockContention,
		exportDuration:  exportDuration,
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

// Registry returns the underlying Prometheus registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordFanout counts sessions updated by a pattern application and the conflicts it reported.
func (m *MetricsService) RecordFanout(dim models.Dimension, updated int, conflicts []models.ResourceConflict) {
	if m == nil {
		return
	}
	m.fanoutSessions.WithLabelValues(string(dim)).Add(float64(updated))
	for _, c := range conflicts {
		m.fanoutConflicts.WithLabelValues(string(c.Reason)).Inc()
	}
}

// RecordResolution counts a conflict resolution attempt. mode is single, bulk or reapply.
func (m *MetricsService) RecordResolution(mode string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.resolutions.WithLabelValues(mode, outcome).Inc()
}

// RecordSubmission counts lifecycle transitions such as submitted, blocked, approved and rejected.
func (m *MetricsService) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordLockContention counts a rejected concurrent mutation.
func (m *MetricsService) RecordLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

// ObserveExport records export rendering time.
func (m *MetricsService) ObserveExport(format models.ExportFormat, status models.ExportStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.exportDuration.WithLabelValues(string(format), string(status)).Observe(duration.Seconds())
}
