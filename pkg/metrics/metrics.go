// Package metrics holds the Prometheus collectors shared by preprocessing,
// queries and the HTTP server. Collectors register with the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "corerouter"

// Query kinds used as label values.
const (
	KindMatrix = "matrix"
	KindRoute  = "route"
)

// Query results used as label values.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultBudget   = "budget_exceeded"
	ResultError    = "error"
)

var (
	// ContractionDuration tracks how long one hierarchy takes to build.
	ContractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "contraction_duration_seconds",
		Help:      "Contraction hierarchy preprocessing duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
	})

	// ShortcutsCreated counts shortcuts added across all contractions.
	ShortcutsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shortcuts_created_total",
		Help:      "Total shortcuts created by contraction",
	})

	// CoreNodes reports the core size of the most recently built hierarchy.
	CoreNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "core_nodes",
		Help:      "Number of uncontracted core nodes in the last built hierarchy",
	})

	// LandmarkSubnetworks counts core subnetworks by landmark outcome.
	LandmarkSubnetworks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "landmark_subnetworks_total",
		Help:      "Core subnetworks seen during landmark builds by outcome",
	}, []string{"outcome"})

	// QueriesTotal counts queries by kind and result.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Total queries by kind and result",
	}, []string{"kind", "result"})

	// QueryDuration tracks query latency.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Query duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	}, []string{"kind"})

	// MatrixCells tracks the k*m size of matrix queries.
	MatrixCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "matrix_cells",
		Help:      "Number of cells per matrix query",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)

// ObserveQuery records one finished query.
func ObserveQuery(kind, result string, elapsed time.Duration) {
	QueriesTotal.WithLabelValues(kind, result).Inc()
	QueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
