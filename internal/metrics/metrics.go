// Package metrics provides Prometheus metrics for the harvester.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvester"

// Metrics holds the collectors on a private registry so tests can build their own.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal      *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	BatchesTotal    *prometheus.CounterVec
	ArticlesTotal   *prometheus.CounterVec
	SinkErrors      *prometheus.CounterVec
	PublisherErrors *prometheus.CounterVec
	PassesTotal     prometheus.Counter
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Feed fetches by provider and outcome (ok or transport failure reason)",
			},
			[]string{"provider", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of feed fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Ingest batches by provider and status",
			},
			[]string{"provider", "status"},
		),
		ArticlesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_total",
				Help:      "Articles extracted by provider",
			},
			[]string{"provider"},
		),
		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Failed durable appends by provider",
			},
			[]string{"provider"},
		),
		PublisherErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publisher_errors_total",
				Help:      "Failed downstream publishes by publisher",
			},
			[]string{"publisher"},
		),
		PassesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Completed harvesting passes",
			},
		),
	}

	reg.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.BatchesTotal,
		m.ArticlesTotal,
		m.SinkErrors,
		m.PublisherErrors,
		m.PassesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFetch records one fetch attempt. outcome is "ok" or a transport failure reason.
func (m *Metrics) RecordFetch(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(provider, outcome).Inc()
	m.FetchDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordBatch records one appended batch.
func (m *Metrics) RecordBatch(provider, status string, articles int) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(provider, status).Inc()
	if articles > 0 {
		m.ArticlesTotal.WithLabelValues(provider).Add(float64(articles))
	}
}

// RecordSinkError records a failed durable append.
func (m *Metrics) RecordSinkError(provider string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(provider).Inc()
}

// RecordPublisherError records a failed downstream publish.
func (m *Metrics) RecordPublisherError(publisher string) {
	if m == nil {
		return
	}
	m.PublisherErrors.WithLabelValues(publisher).Inc()
}

// RecordPass records one completed pass.
func (m *Metrics) RecordPass() {
	if m == nil {
		return
	}
	m.PassesTotal.Inc()
}
