package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics tracks the ingestion and retrieval pipeline. All record
// methods are nil-receiver safe so usecases can run without a registry in
// tests.
type PipelineMetrics struct {
	registry *prometheus.Registry

	uploadsTotal     *prometheus.CounterVec
	uploadDuration   *prometheus.HistogramVec
	searchesTotal    *prometheus.CounterVec
	searchResults    *prometheus.HistogramVec
	deletesTotal     prometheus.Counter
	creditsRemaining prometheus.Gauge
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbs",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total processed uploads by category and enrichment outcome.",
		},
		[]string{"service", "category", "outcome"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbs",
			Subsystem: "ingest",
			Name:      "upload_duration_seconds",
			Help:      "Upload pipeline duration in seconds by category.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "category"},
	)
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbs",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total search requests by filter and query mode.",
		},
		[]string{"service", "filter", "mode"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbs",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of result counts per search request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 20},
		},
		[]string{"service"},
	)
	deletesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kbs",
			Subsystem: "catalog",
			Name:      "deletes_total",
			Help:      "Total deleted files.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	creditsRemaining := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kbs",
			Subsystem: "credits",
			Name:      "pdf_remaining",
			Help:      "PDF analysis credits remaining in the current cycle.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(uploadsTotal, uploadDuration, searchesTotal, searchResults, deletesTotal, creditsRemaining)

	return &PipelineMetrics{
		registry:         registry,
		uploadsTotal:     uploadsTotal,
		uploadDuration:   uploadDuration,
		searchesTotal:    searchesTotal,
		searchResults:    searchResults,
		deletesTotal:     deletesTotal,
		creditsRemaining: creditsRemaining,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) RecordUpload(category string, degraded bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "enriched"
	if degraded {
		outcome = "degraded"
	}
	m.uploadsTotal.WithLabelValues("api", category, outcome).Inc()
	m.uploadDuration.WithLabelValues("api", category).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordSearch(filter string, keyword bool, resultCount int) {
	if m == nil {
		return
	}
	mode := "listing"
	if keyword {
		mode = "keyword"
	}
	m.searchesTotal.WithLabelValues("api", filter, mode).Inc()
	m.searchResults.WithLabelValues("api").Observe(float64(resultCount))
}

func (m *PipelineMetrics) RecordDelete() {
	if m == nil {
		return
	}
	m.deletesTotal.Inc()
}

func (m *PipelineMetrics) SetCreditsRemaining(credits int) {
	if m == nil {
		return
	}
	m.creditsRemaining.Set(float64(credits))
}
