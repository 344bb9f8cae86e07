// Package metrics exposes Prometheus collectors for analytics runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/statlens/statlens/internal/analytics/anomaly"
)

const namespace = "statlens"

// Run outcomes
const (
	OutcomeSuccess = "success"
	OutcomeCached  = "cached"
	OutcomeError   = "error"
)

// Registry holds the collectors of one service instance. Each instance owns
// its prometheus.Registry so tests can build as many as they like.
type Registry struct {
	registry *prometheus.Registry

	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	Anomalies    *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
}

// NewRegistry creates and registers all collectors
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_runs_total",
				Help:      "Analytics runs by outcome.",
			},
			[]string{"outcome"},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analytics_run_duration_seconds",
				Help:      "Duration of uncached analytics runs in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_cache_hits_total",
				Help:      "Analytics cache hits.",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_cache_misses_total",
				Help:      "Analytics cache misses, including failed lookups.",
			},
		),

		Anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_detected_total",
				Help:      "Anomalies detected by severity and detection type.",
			},
			[]string{"severity", "type"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
	}

	r.registry.MustRegister(
		r.Runs,
		r.RunDuration,
		r.CacheHits,
		r.CacheMisses,
		r.Anomalies,
		r.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveRun records one run's outcome and, for computed runs, its duration
func (r *Registry) ObserveRun(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		r.RunDuration.Observe(duration.Seconds())
	}
}

// CacheLookup records a cache hit or miss
func (r *Registry) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.Inc()
	} else {
		r.CacheMisses.Inc()
	}
}

// ObserveAnomalies counts anomalies by severity and type
func (r *Registry) ObserveAnomalies(anomalies []anomaly.Anomaly) {
	if r == nil {
		return
	}
	for _, a := range anomalies {
		r.Anomalies.WithLabelValues(a.Severity.String(), string(a.Type)).Inc()
	}
}

// Middleware counts requests by matched route so path parameters do not
// explode label cardinality.
func (r *Registry) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		r.HTTPRequests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
