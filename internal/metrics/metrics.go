// file: internal/metrics/metrics.go
// version: 1.0.0
// guid: f02b7d64-8c15-49ae-93d0-6e458a2b17c3

// Package metrics exposes Prometheus instrumentation for the resolve
// and organize operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audiobook_pipeline"

var (
	// BooksProcessed counts organize outcomes by result
	// (placed, unsorted, skipped, failed).
	BooksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "books_processed_total",
		Help:      "Books processed by the organize pipeline, by outcome.",
	}, []string{"outcome"})

	// CatalogSearches counts catalog API queries by result (hit, miss, error).
	CatalogSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_searches_total",
		Help:      "Catalog search queries, by result.",
	}, []string{"result"})

	// AIRequests counts AI calls by kind (resolve, disambiguate) and
	// result (ok, failed).
	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_requests_total",
		Help:      "AI resolution and disambiguation requests.",
	}, []string{"kind", "result"})

	// ResolveDuration times metadata resolution per book.
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolve_duration_seconds",
		Help:      "Time to resolve metadata for one book.",
		Buckets:   prometheus.DefBuckets,
	})

	// OrganizeDuration times file placement per book.
	OrganizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "organize_duration_seconds",
		Help:      "Time to place one book into the library.",
		Buckets:   prometheus.DefBuckets,
	})

	// AliasesRecorded counts author alias adoptions.
	AliasesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "author_aliases_recorded_total",
		Help:      "Author name variants canonicalized and persisted.",
	})
)
