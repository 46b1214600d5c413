package obs

import (
	"net/http"
	"strconv"
	"time"

	"logistics-platform/internal/audit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	permissionDenied *prometheus.CounterVec
	auditEntries     *prometheus.CounterVec
	auditFailures    *prometheus.CounterVec
	loginThrottled   prometheus.Counter
}

var _ audit.Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		permissionDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_permission_denied_total",
			Help: "Requests refused with a uniform 403, by resource.",
		}, []string{"resource"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Audit entries written, by action and severity.",
		}, []string{"action", "severity"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit writes that failed and were dropped.",
		}, []string{"action"}),
		loginThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_login_throttled_total",
			Help: "Login attempts rejected by the per-client limiter.",
		}),
	}
	m.reg.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.permissionDenied, m.auditEntries, m.auditFailures, m.loginThrottled,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Instrument records RPS, latency and in-flight requests per route template.
func (m *Metrics) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpInFlight.Dec()
	}
}

func (m *Metrics) PermissionDenied(resource string) {
	if resource == "" {
		resource = "unknown"
	}
	m.permissionDenied.WithLabelValues(resource).Inc()
}

func (m *Metrics) LoginThrottled() { m.loginThrottled.Inc() }

func (m *Metrics) EntryRecorded(e audit.Entry) {
	m.auditEntries.WithLabelValues(string(e.Action), string(e.Severity)).Inc()
}

func (m *Metrics) EntryFailed(e audit.Entry, _ error) {
	m.auditFailures.WithLabelValues(string(e.Action)).Inc()
}
