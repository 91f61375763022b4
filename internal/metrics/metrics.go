// Package metrics exposes Prometheus collectors for the ingest pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	articlesTotal          *prometheus.CounterVec
	enrichmentCallsTotal   *prometheus.CounterVec
	timeoutsTotal          *prometheus.CounterVec
	articleDurationSeconds prometheus.Histogram
	entitiesCreatedTotal   *prometheus.CounterVec
	discoveryLocatorsTotal prometheus.Counter
	activeArticles         prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_articles_total",
				Help: "Total number of articles processed, labeled by outcome.",
			},
			[]string{"status"},
		)

		enrichmentCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_enrichment_calls_total",
				Help: "Total generation service calls, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		timeoutsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_timeouts_total",
				Help: "Total timeout-class failures, labeled by retry scope.",
			},
			[]string{"scope"},
		)

		articleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_article_duration_seconds",
				Help:    "Histogram of end-to-end per-article processing latencies.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)

		entitiesCreatedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_entities_created_total",
				Help: "Total tag and author rows created, labeled by kind.",
			},
			[]string{"kind"},
		)

		discoveryLocatorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_discovery_locators_total",
				Help: "Total article locators produced by period discovery.",
			},
		)

		activeArticles = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ingest_active_articles",
				Help: "Number of articles currently being processed.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveArticle increments the article counter for the given outcome.
// Outcome is one of "inserted", "skipped" or "failed".
func ObserveArticle(status string) {
	articlesTotal.WithLabelValues(status).Inc()
}

// ObserveEnrichment increments the generation call counter.
func ObserveEnrichment(mode, outcome string) {
	enrichmentCallsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveTimeout increments the timeout counter for a retry scope.
func ObserveTimeout(scope string) {
	timeoutsTotal.WithLabelValues(scope).Inc()
}

// ObserveArticleDuration records one article's end-to-end latency.
func ObserveArticleDuration(d time.Duration) {
	articleDurationSeconds.Observe(d.Seconds())
}

// ObserveEntityCreated increments the created entity counter for a kind.
func ObserveEntityCreated(kind string) {
	entitiesCreatedTotal.WithLabelValues(kind).Inc()
}

// ObserveDiscovery adds the number of locators one discovery pass produced.
func ObserveDiscovery(locators int) {
	discoveryLocatorsTotal.Add(float64(locators))
}

// IncActiveArticles increments the in-flight article gauge.
func IncActiveArticles() {
	activeArticles.Inc()
}

// DecActiveArticles decrements the in-flight article gauge.
func DecActiveArticles() {
	activeArticles.Dec()
}
