// Package metrics defines the Prometheus collectors shared by the crawler
// and the ranking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	PagesCrawled     prometheus.Counter
	PagesSkipped     *prometheus.CounterVec
	CrawlErrors      prometheus.Counter
	FrontierSize     prometheus.Gauge
	DocsIndexed      prometheus.Counter
	DocsDroppedEmpty prometheus.Counter
	SearchesTotal    prometheus.Counter
	SearchLatency    prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry. The
// registry is returned alongside so callers can expose or inspect it.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		PagesCrawled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_pages_crawled_total",
			Help: "Pages fetched, parsed and emitted for indexing.",
		}),
		PagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_pages_skipped_total",
			Help: "Pages skipped by reason (robots, domain, status, content_type, noindex, visited).",
		}, []string{"reason"}),
		CrawlErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Network or parse errors; the URL is abandoned, never retried.",
		}),
		FrontierSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawler_frontier_size",
			Help: "URLs currently queued in the frontier.",
		}),
		DocsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_documents_indexed_total",
			Help: "Documents accepted into the corpus.",
		}),
		DocsDroppedEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_documents_dropped_empty_total",
			Help: "Documents silently dropped because tokenization produced nothing.",
		}),
		SearchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_searches_total",
			Help: "Search queries answered.",
		}),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_search_latency_seconds",
			Help:    "Search latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}

	reg.MustRegister(
		m.PagesCrawled, m.PagesSkipped, m.CrawlErrors, m.FrontierSize,
		m.DocsIndexed, m.DocsDroppedEmpty, m.SearchesTotal, m.SearchLatency,
	)
	return m, reg
}
