package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide metrics, registered on the default registry and served by --metrics-addr.
var (
	termEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaoatn_term_evaluations_total",
			Help: "Local expectation evaluations, by term kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	termDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qaoatn_term_duration_seconds",
			Help:    "Duration of a single local expectation evaluation",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 12),
		},
		[]string{"kind", "strategy"},
	)

	imagResidue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qaoatn_imag_residue",
			Help:    "Imaginary parts discarded from local expectations above tolerance",
			Buckets: prometheus.ExponentialBuckets(1e-9, 10, 8),
		},
	)

	aggregateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qaoatn_aggregate_duration_seconds",
			Help:    "Duration of a full expectation aggregation",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 12),
		},
		[]string{"mode"},
	)

	aggregateFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaoatn_aggregate_failures_total",
			Help: "Failed aggregations, by mode",
		},
		[]string{"mode"},
	)

	lastExpectation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qaoatn_last_expectation",
			Help: "Most recent total expectation value",
		},
	)
)
