package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry. All methods are safe on a nil receiver
// so components can be built without instrumentation in tests.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	projections     *prometheus.CounterVec
	lifecycle       *prometheus.CounterVec
	backgroundTasks prometheus.Gauge
}

// New registers the application collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
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
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Provider booking notifications by outcome",
		}, []string{"outcome"}),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "live_status_projections_total",
			Help: "Live-status projection writes by kind and outcome",
		}, []string{"kind", "outcome"}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Service request and job card status transitions",
		}, []string{"entity", "status"}),
		backgroundTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "background_tasks_in_flight",
			Help: "Detached background tasks currently running",
		}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.notifications, m.projections, m.lifecycle, m.backgroundTasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// GinMiddleware records request count and latency keyed by the route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// NotificationSent counts one per-recipient dispatch outcome ("sent" or "failed").
func (m *Metrics) NotificationSent(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// ProjectionWritten counts one live-status projection attempt.
func (m *Metrics) ProjectionWritten(kind, outcome string) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(kind, outcome).Inc()
}

// Transition counts a persisted status change.
func (m *Metrics) Transition(entity, status string) {
	if m == nil {
		return
	}
	m.lifecycle.WithLabelValues(entity, status).Inc()
}

// TaskStarted and TaskFinished track the background task gauge.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.backgroundTasks.Inc()
}

func (m *Metrics) TaskFinished() {
	if m == nil {
		return
	}
	m.backgroundTasks.Dec()
}
