package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling
// engine: HTTP traffic, solve runs and queue depth.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	solveTotal      *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService registers the collectors.
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

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solve_duration_seconds",
		Help:    "Wall-clock duration of scheduling runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"kind", "strategy"})

	solveTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solves_total",
		Help: "Total scheduling runs by outcome",
	}, []string{"kind", "strategy", "success"})

	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solve_jobs",
		Help: "Solve jobs per lifecycle state",
	}, []string{"state"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, solveTotal, queueDepth, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		solveDuration:   solveDuration,
		solveTotal:      solveTotal,
		queueDepth:      queueDepth,
		dbQueryDuration: dbQueryDuration,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSolve records a finished scheduling run.
func (m *MetricsService) ObserveSolve(kind string, strategy string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(kind, strategy).Observe(duration.Seconds())
	m.solveTotal.WithLabelValues(kind, strategy, fmt.Sprintf("%t", success)).Inc()
}

// SetQueueDepth publishes per-state job counts.
func (m *MetricsService) SetQueueDepth(stats models.QueueStats) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(string(models.JobStateWaiting)).Set(float64(stats.Waiting))
	m.queueDepth.WithLabelValues(string(models.JobStateActive)).Set(float64(stats.Active))
	m.queueDepth.WithLabelValues(string(models.JobStateCompleted)).Set(float64(stats.Completed))
	m.queueDepth.WithLabelValues(string(models.JobStateFailed)).Set(float64(stats.Failed))
	m.queueDepth.WithLabelValues(string(models.JobStateDelayed)).Set(float64(stats.Delayed))
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
