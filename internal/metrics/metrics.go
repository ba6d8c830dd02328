// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Package metrics holds the Prometheus collectors for the recommendation
// pipeline, its upstream clients and the HTTP API. All collectors register
// with the default registry and are exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_pipeline_duration_seconds",
			Help:    "Duration of one user's recommendation pipeline run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"}, // "success", "not_found", "upstream", "validation", "persistence", "error"
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_pipeline_runs_total",
			Help: "Total pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	BucketSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_bucket_candidates",
			Help:    "Number of candidates produced per mining bucket",
			Buckets: []float64{0, 1, 3, 5, 8, 10, 15, 20},
		},
		[]string{"bucket"},
	)

	StrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_strategy_failures_total",
			Help: "Mining strategies that failed and fell back to an empty bucket",
		},
		[]string{"bucket"},
	)

	PoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_pool_candidates",
			Help:    "Number of unique candidates after merging buckets",
			Buckets: []float64{0, 5, 10, 20, 30, 40, 50},
		},
	)

	HydrationDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_hydration_dropped_items_total",
			Help: "Oracle items dropped because their id was not in the candidate pool",
		},
	)

	HydratedSections = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_hydrated_sections",
			Help:    "Number of non-empty sections in a hydrated result",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// Metadata cache

	MetadataCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_metadata_cache_hits_total",
			Help: "Metadata lookups served from the cache",
		},
	)

	MetadataCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_metadata_cache_misses_total",
			Help: "Metadata lookups that went to the metadata service",
		},
	)

	MetadataCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_metadata_cache_entries",
			Help: "Current number of memoized metadata entries",
		},
	)

	// Upstream services

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_upstream_request_duration_seconds",
			Help:    "Duration of calls to the metadata service and the ranking oracle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	UpstreamRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_upstream_request_errors_total",
			Help: "Failed calls to upstream services",
		},
		[]string{"service", "operation", "status"},
	)

	UpstreamRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_upstream_rate_limited_total",
			Help: "HTTP 429 responses received from upstream services",
		},
		[]string{"service"},
	)

	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_oracle_calls_total",
			Help: "Ranking oracle calls by result",
		},
		[]string{"result"}, // "success", "retry", "failure"
	)

	OracleTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_oracle_tokens_total",
			Help: "Tokens reported by the ranking oracle",
		},
		[]string{"kind"}, // "prompt", "completion"
	)

	// Circuit breakers

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Persistence and events

	PersistenceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_persistence_writes_total",
			Help: "Result writes by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_events_published_total",
			Help: "recommendation.generated events by outcome",
		},
		[]string{"outcome"},
	)

	// Batch and scheduling

	BatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_batch_runs_total",
			Help: "Batch runs by trigger",
		},
		[]string{"trigger"}, // "schedule", "api", "cli"
	)

	BatchUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_batch_users_total",
			Help: "Users processed by batch runs",
		},
		[]string{"outcome"}, // "succeeded", "failed"
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_batch_duration_seconds",
			Help:    "Duration of full batch runs",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600},
		},
	)

	BatchLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_batch_last_success_timestamp",
			Help: "Unix timestamp of the last batch that finished",
		},
	)

	TriggerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_trigger_queue_depth",
			Help: "Pending per-user triggers",
		},
	)

	TriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_triggers_total",
			Help: "Per-user triggers by result",
		},
		[]string{"result"}, // "queued", "coalesced", "rejected"
	)

	// HTTP API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of active API requests",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordPipelineRun records one pipeline run.
func RecordPipelineRun(outcome string, duration time.Duration) {
	PipelineRuns.WithLabelValues(outcome).Inc()
	PipelineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordBucket records the size of a mined bucket and whether its strategy failed.
func RecordBucket(bucket string, size int, failed bool) {
	BucketSize.WithLabelValues(bucket).Observe(float64(size))
	if failed {
		StrategyFailures.WithLabelValues(bucket).Inc()
	}
}

// RecordUpstreamRequest records a call to an upstream service. status is the
// HTTP status code or 0 for transport failures.
func RecordUpstreamRequest(service, operation string, status int, duration time.Duration, err error) {
	UpstreamRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
	if err != nil {
		label := "transport"
		if status > 0 {
			label = strconv.Itoa(status)
		}
		UpstreamRequestErrors.WithLabelValues(service, operation, label).Inc()
	}
}

// RecordDBQuery records a DuckDB query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordPersistenceWrite records a result write.
func RecordPersistenceWrite(backend string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	PersistenceWrites.WithLabelValues(backend, outcome).Inc()
}

// RecordBatch records a finished batch run.
func RecordBatch(trigger string, succeeded, failed int, duration time.Duration) {
	BatchRuns.WithLabelValues(trigger).Inc()
	BatchUsers.WithLabelValues("succeeded").Add(float64(succeeded))
	BatchUsers.WithLabelValues("failed").Add(float64(failed))
	BatchDuration.Observe(duration.Seconds())
	BatchLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
