package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan outcomes used as the result label of scans_total.
const (
	ScanAccepted  = "accepted"
	ScanDuplicate = "duplicate"
	ScanRejected  = "rejected"
)

// MetricsService owns the Prometheus registry of the kiosk.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	scans          *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	sinkFailures   prometheus.Counter
	rosterStudents prometheus.Gauge
	present        prometheus.Gauge
	absent         prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by outcome",
		}, []string{"result"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of attendance sink queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scans_total",
			Help: "QR payloads processed by outcome",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Absence list uploads by outcome",
		}, []string{"result"}),
		sinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_sink_failures_total",
			Help: "Attendance rows that could not be appended",
		}),
		rosterStudents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_students",
			Help: "Students loaded from the roster for the current session",
		}),
		present: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "present_students",
			Help: "Distinct students marked present in the current session",
		}),
		absent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "absent_students",
			Help: "Students in the latest absence report",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheLookups, m.dbQueryDuration,
		m.scans, m.uploads, m.sinkFailures, m.rosterStudents, m.present, m.absent, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry is exposed for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, label).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, label).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records SQL sink timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordScan counts one processed payload.
func (m *MetricsService) RecordScan(result string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result).Inc()
}

// RecordSinkFailure counts a failed attendance append.
func (m *MetricsService) RecordSinkFailure() {
	if m == nil {
		return
	}
	m.sinkFailures.Inc()
}

// RecordUpload counts one upload outcome.
func (m *MetricsService) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

// SetRosterSize updates roster_students.
func (m *MetricsService) SetRosterSize(n int) {
	if m == nil {
		return
	}
	m.rosterStudents.Set(float64(n))
}

// SetPresent updates present_students.
func (m *MetricsService) SetPresent(n int) {
	if m == nil {
		return
	}
	m.present.Set(float64(n))
}

// SetAbsent updates absent_students.
func (m *MetricsService) SetAbsent(n int) {
	if m == nil {
		return
	}
	m.absent.Set(float64(n))
}
