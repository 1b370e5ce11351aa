package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry              *prometheus.Registry
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	projectionRunsTotal   *prometheus.CounterVec
	projectionRunDuration prometheus.Histogram
	boundaryLookups       *prometheus.CounterVec
	alertsTotal           prometheus.Counter
}

// New creates a fresh Metrics registry with HTTP and projection metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapeditor",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by core-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapeditor",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by core-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	projectionRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapeditor",
		Name:      "projection_runs_total",
		Help:      "Total number of energy system projections by outcome",
	}, []string{"outcome"})

	projectionRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mapeditor",
		Name:      "projection_run_duration_seconds",
		Help:      "Duration of projection runs from start to publish",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	boundaryLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapeditor",
		Name:      "boundary_lookups_total",
		Help:      "Boundary service lookups by cache outcome",
	}, []string{"outcome"})

	alertsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapeditor",
		Name:      "alerts_total",
		Help:      "Alerts emitted to the map client during projection",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		projectionRunsTotal,
		projectionRunDuration,
		boundaryLookups,
		alertsTotal,
	)

	return &Metrics{
		registry:              registry,
		httpRequests:          httpRequests,
		httpRequestDuration:   httpRequestDuration,
		projectionRunsTotal:   projectionRunsTotal,
		projectionRunDuration: projectionRunDuration,
		boundaryLookups:       boundaryLookups,
		alertsTotal:           alertsTotal,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncProjectionRun counts a projection run with outcome ok, skipped or error.
func (m *Metrics) IncProjectionRun(outcome string) {
	if m == nil {
		return
	}
	m.projectionRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProjectionDuration observes a projection run duration.
func (m *Metrics) ObserveProjectionDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.projectionRunDuration.Observe(duration.Seconds())
}

// ObserveBoundaryLookup counts a boundary lookup by cache outcome.
func (m *Metrics) ObserveBoundaryLookup(outcome string) {
	if m == nil {
		return
	}
	m.boundaryLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddAlerts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsTotal.Add(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
