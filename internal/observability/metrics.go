// Package observability provides metrics and tracing for the pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postguard_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ClassifierCalls counts outbound classifier calls by backend and outcome.
	ClassifierCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postguard_classifier_calls_total",
		Help: "Total classifier backend calls by backend and outcome",
	}, []string{"backend", "outcome"})

	// ClassifierLatency records classifier backend call latency.
	ClassifierLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postguard_classifier_latency_seconds",
		Help:    "Classifier backend call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	// SweepsTotal counts completed reconciliation sweeps.
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postguard_sweeps_total",
		Help: "Total completed reconciliation sweeps",
	})

	// SweepDuration records reconciliation sweep duration.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "postguard_sweep_duration_seconds",
		Help:    "Reconciliation sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SweepPostErrors counts per-post verification failures during sweeps.
	SweepPostErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postguard_sweep_post_errors_total",
		Help: "Total per-post verification errors during sweeps",
	})

	// VerificationOutcomes counts verification pass outcomes by resulting status.
	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postguard_verification_outcomes_total",
		Help: "Total verification pass outcomes by resulting status",
	}, []string{"status"})
)
