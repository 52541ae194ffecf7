// Package metrics exposes Prometheus counters for auth flows and the TMDB proxy.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes used as label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics holds the application's collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	authEvents   *prometheus.CounterVec
	tmdbRequests *prometheus.CounterVec
	tmdbDuration prometheus.Histogram
}

// New creates a registry with Go, process and application collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flixapi_auth_events_total",
				Help: "Total number of account operations by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		tmdbRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flixapi_tmdb_requests_total",
				Help: "Total number of upstream TMDB requests by outcome",
			},
			[]string{"outcome"},
		),
		tmdbDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flixapi_tmdb_request_duration_seconds",
			Help:    "Latency of upstream TMDB requests including retries",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(m.authEvents, m.tmdbRequests, m.tmdbDuration)
	return m
}

// RecordAuthEvent counts one signup, login, verify, forgot or reset attempt
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveTMDBRequest records one upstream call
func (m *Metrics) ObserveTMDBRequest(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tmdbRequests.WithLabelValues(outcome).Inc()
	m.tmdbDuration.Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
