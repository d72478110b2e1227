package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes transform counters and latency for Prometheus scraping.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	applied  *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates a metrics set on its own Prometheus registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		applied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reshape_transforms_applied_total",
				Help: "Total number of operation sets applied",
			},
			[]string{"bridge", "medium"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reshape_transform_errors_total",
				Help: "Total number of operation sets that failed",
			},
			[]string{"bridge", "medium"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reshape_transform_duration_seconds",
				Help:    "Time spent applying one operation set",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"medium"},
		),
	}

	reg.MustRegister(m.applied, m.errors, m.duration)
	return m
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Applied records a successfully applied set.
func (m *Metrics) Applied(bridge, medium string) {
	if m == nil {
		return
	}
	m.applied.WithLabelValues(bridge, medium).Inc()
}

// Error records a failed set.
func (m *Metrics) Error(bridge, medium string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(bridge, medium).Inc()
}

// Timer measures one set application; call Done when finished.
type Timer struct {
	metrics *Metrics
	medium  string
	start   time.Time
}

// Timer starts a duration measurement for the given medium.
func (m *Metrics) Timer(medium string) Timer {
	return Timer{metrics: m, medium: medium, start: time.Now()}
}

// Done records the elapsed time.
func (t Timer) Done() {
	if t.metrics == nil {
		return
	}
	t.metrics.duration.WithLabelValues(t.medium).Observe(time.Since(t.start).Seconds())
}
