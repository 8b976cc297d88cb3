// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package metrics provides Prometheus instrumentation for the serving path:
// prediction and recommendation throughput, model rebuild cycles, response
// cache efficiency, ingestion, and HTTP endpoint latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratemesh_predictions_total",
			Help: "Total rating predictions, by algorithm and outcome",
		},
		[]string{"algorithm", "outcome"}, // outcome: "scored", "abstained"
	)

	// Recommendation metrics
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratemesh_recommendation_duration_seconds",
			Help:    "Time to generate one recommendation list",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratemesh_recommendations_total",
			Help: "Total recommendation lists generated, by strategy",
		},
		[]string{"strategy"},
	)

	// Response cache metrics
	RecCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratemesh_recommendation_cache_hits_total",
			Help: "Recommendation response cache hits",
		},
	)

	RecCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratemesh_recommendation_cache_misses_total",
			Help: "Recommendation response cache misses",
		},
	)

	// Model lifecycle metrics
	ModelRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ratemesh_model_rebuild_duration_seconds",
			Help:    "Time to build one model snapshot",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ModelRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratemesh_model_rebuilds_total",
			Help: "Total model snapshot rebuilds",
		},
	)

	ModelUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratemesh_model_users",
			Help: "Users in the current model snapshot",
		},
	)

	ModelItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratemesh_model_items",
			Help: "Rated items in the current model snapshot",
		},
	)

	ModelRatings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratemesh_model_ratings",
			Help: "Ratings in the current model snapshot",
		},
	)

	// Evaluation metrics
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ratemesh_evaluation_duration_seconds",
			Help:    "Time to evaluate the model against a held-out set",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	EvaluationTestSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratemesh_evaluation_test_size",
			Help: "Size of the most recent evaluation test set",
		},
	)

	// Ingestion metrics
	IngestedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratemesh_ingested_records_total",
			Help: "Records ingested from source files, by table and outcome",
		},
		[]string{"table", "outcome"}, // outcome: "loaded", "skipped"
	)

	// DuckDB metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratemesh_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratemesh_db_query_errors_total",
			Help: "Total DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// HTTP metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratemesh_api_request_duration_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratemesh_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratemesh_api_active_requests",
			Help: "API requests currently in flight",
		},
	)
)

// RecordPrediction counts one prediction attempt.
func RecordPrediction(algorithm string, scored bool) {
	outcome := "scored"
	if !scored {
		outcome = "abstained"
	}
	PredictionsTotal.WithLabelValues(algorithm, outcome).Inc()
}

// RecordRecommendation tracks one generated list.
func RecordRecommendation(strategy string, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(strategy).Inc()
	RecommendationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordRecCacheHit counts a response cache hit.
func RecordRecCacheHit() {
	RecCacheHits.Inc()
}

// RecordRecCacheMiss counts a response cache miss.
func RecordRecCacheMiss() {
	RecCacheMisses.Inc()
}

// RecordModelRebuild tracks one snapshot build and updates the size gauges.
func RecordModelRebuild(duration time.Duration, users, items, ratingCount int) {
	ModelRebuildsTotal.Inc()
	ModelRebuildDuration.Observe(duration.Seconds())
	ModelUsers.Set(float64(users))
	ModelItems.Set(float64(items))
	ModelRatings.Set(float64(ratingCount))
}

// RecordEvaluation tracks one evaluation pass.
func RecordEvaluation(duration time.Duration, testSize int) {
	EvaluationDuration.Observe(duration.Seconds())
	EvaluationTestSize.Set(float64(testSize))
}

// RecordIngestion tracks one ingestion pass for a table.
func RecordIngestion(table string, loaded, skipped int) {
	IngestedRecords.WithLabelValues(table, "loaded").Add(float64(loaded))
	IngestedRecords.WithLabelValues(table, "skipped").Add(float64(skipped))
}

// RecordDBQuery tracks one DuckDB query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest tracks one completed HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	APIRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint, code).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
