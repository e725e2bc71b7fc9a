// Package observability exposes Prometheus metrics for the HTTP surface and
// the calculation engine.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects application metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	calculationsTotal   *prometheus.CounterVec
	calculationDuration *prometheus.HistogramVec
	sweepBarredTotal    prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirathi_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mirathi_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	calculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirathi_calculations_total",
		Help: "Engine calculations by kind and outcome.",
	}, []string{"kind", "outcome"})
	calcDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mirathi_calculation_duration_seconds",
		Help:    "Engine calculation duration per kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	sweepBarred := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirathi_statute_sweep_barred_total",
		Help: "Debts marked statute-barred by the nightly sweep.",
	})
	registry.MustRegister(requests, duration, calculations, calcDuration, sweepBarred)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		calculationsTotal:   calculations,
		calculationDuration: calcDuration,
		sweepBarredTotal:    sweepBarred,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCalculation records one engine calculation.
func (m *Metrics) ObserveCalculation(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calculationsTotal.WithLabelValues(kind, outcome).Inc()
	m.calculationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// AddStatuteBarred counts debts flipped by the limitation sweep.
func (m *Metrics) AddStatuteBarred(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepBarredTotal.Add(float64(n))
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
