package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides a self-contained Prometheus registry with client-side
// request collectors. The client package consumes it through its Observer
// interface so the library itself does not depend on prometheus.
type Metrics struct {
	reg      *prometheus.Registry
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "s3courier",
		Subsystem: "client",
		Name:      "inflight_requests",
		Help:      "Current number of inflight request attempts.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3courier",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total number of request attempts, partitioned by status code and method.",
	}, []string{"code", "method"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3courier",
		Subsystem: "client",
		Name:      "retries_total",
		Help:      "Total number of retried attempts, partitioned by method.",
	}, []string{"method"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "s3courier",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Histogram of latencies for request attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code", "method"})

	_ = reg.Register(inflight)
	_ = reg.Register(requests)
	_ = reg.Register(retries)
	_ = reg.Register(latency)

	return &Metrics{
		reg:      reg,
		inflight: inflight,
		requests: requests,
		retries:  retries,
		latency:  latency,
	}
}

// AttemptStart marks an attempt going on the wire. Implements the client
// Observer.
func (m *Metrics) AttemptStart(string) {
	m.inflight.Inc()
}

// AttemptDone marks an attempt leaving the wire. Implements the client
// Observer.
func (m *Metrics) AttemptDone(string) {
	m.inflight.Dec()
}

// Request records one dispatched attempt. Implements the client Observer.
func (m *Metrics) Request(method string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(code, method).Inc()
	m.latency.WithLabelValues(code, method).Observe(elapsed.Seconds())
}

// Retry records a scheduled retry. Implements the client Observer.
func (m *Metrics) Retry(method string) {
	m.retries.WithLabelValues(method).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics using the internal registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry for advanced usage.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
