// Package metrics exposes Prometheus collectors for the HTTP surface,
// authentication outcomes and outbound generation calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes.
const (
	AuthSuccess       = "success"
	AuthMissingHeader = "missing_header"
	AuthExpired       = "expired"
	AuthInvalid       = "invalid"
)

// Generation outcomes.
const (
	GenerationSuccess = "success"
	GenerationFailure = "failure"
)

// Metrics holds every collector on a private registry so tests can build
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthAttemptsTotal *prometheus.CounterVec

	GenerationCallsTotal *prometheus.CounterVec
	GenerationDuration   prometheus.Histogram
	BatchTopicsTotal     *prometheus.CounterVec
}

// New creates the collectors under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Bearer token checks by outcome",
			},
			[]string{"outcome"},
		),
		GenerationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_calls_total",
				Help:      "Outbound text generation calls by outcome",
			},
			[]string{"outcome"},
		),
		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_call_duration_seconds",
				Help:      "Outbound text generation call latency",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
			},
		),
		BatchTopicsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_topics_total",
				Help:      "Settled batch topics by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveAuth counts one bearer token check. Safe on a nil receiver.
func (m *Metrics) ObserveAuth(outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records one outbound call. Safe on a nil receiver.
func (m *Metrics) ObserveGeneration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationCallsTotal.WithLabelValues(outcome).Inc()
	m.GenerationDuration.Observe(d.Seconds())
}

// ObserveBatchTopic counts one settled batch topic. Safe on a nil receiver.
func (m *Metrics) ObserveBatchTopic(outcome string) {
	if m == nil {
		return
	}
	m.BatchTopicsTotal.WithLabelValues(outcome).Inc()
}
