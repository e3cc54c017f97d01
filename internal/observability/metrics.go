package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion service.
type Metrics struct {
	// Upstream fetch metrics.
	FeedFetches      *prometheus.CounterVec   // labels: source, outcome={success,error}
	FeedFetchSeconds *prometheus.HistogramVec // labels: source

	// Cache behavior in front of the RSS sources.
	CacheLookups *prometheus.CounterVec // labels: source, result={fresh,stale,expired,miss}

	// Parse and persistence failures.
	ParseFailures *prometheus.CounterVec // labels: source
	StoreFailures *prometheus.CounterVec // labels: document

	// Sudestada tracking.
	SurgeActive      prometheus.Gauge
	SurgeTransitions *prometheus.CounterVec // labels: transition={activated,peak_updated,deactivated}
	EventsPublished  prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marea",
			Name:      "feed_fetches_total",
			Help:      "Upstream fetches by source host and outcome.",
		}, []string{"source", "outcome"}),
		FeedFetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marea",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Upstream fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marea",
			Name:      "cache_lookups_total",
			Help:      "Feed cache lookups by source host and freshness tier.",
		}, []string{"source", "result"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marea",
			Name:      "parse_failures_total",
			Help:      "Documents that could not be parsed, by source.",
		}, []string{"source"}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marea",
			Name:      "store_failures_total",
			Help:      "Persistence failures by document.",
		}, []string{"document"}),
		SurgeActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marea",
			Name:      "sudestada_active",
			Help:      "1 while a sudestada event is active, 0 otherwise.",
		}),
		SurgeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marea",
			Name:      "sudestada_transitions_total",
			Help:      "Sudestada lifecycle transitions by type.",
		}, []string{"transition"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marea",
			Name:      "events_published_total",
			Help:      "Surge transition events published to the broker.",
		}),
	}

	prometheus.MustRegister(
		m.FeedFetches,
		m.FeedFetchSeconds,
		m.CacheLookups,
		m.ParseFailures,
		m.StoreFailures,
		m.SurgeActive,
		m.SurgeTransitions,
		m.EventsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedFetches:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marea", Name: "feed_fetches_total"}, []string{"source", "outcome"}),
		FeedFetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "marea", Name: "feed_fetch_duration_seconds"}, []string{"source"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marea", Name: "cache_lookups_total"}, []string{"source", "result"}),
		ParseFailures:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marea", Name: "parse_failures_total"}, []string{"source"}),
		StoreFailures:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marea", Name: "store_failures_total"}, []string{"document"}),
		SurgeActive:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "marea", Name: "sudestada_active"}),
		SurgeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "marea", Name: "sudestada_transitions_total"}, []string{"transition"}),
		EventsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "marea", Name: "events_published_total"}),
	}
}
