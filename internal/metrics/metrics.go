// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package metrics registers the Prometheus instruments for NextTrack:
// recommendation pipeline timing and stage counts, upstream provider call
// outcomes, cache efficiency, and HTTP surface metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics.

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexttrack_pipeline_runs_total",
			Help: "Total recommendation pipeline runs by outcome",
		},
		[]string{"outcome"}, // "ok", "cache_hit", "no_seeds", "error"
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexttrack_pipeline_duration_seconds",
			Help:    "End-to-end recommendation pipeline duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	StageCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexttrack_stage_candidates",
			Help:    "Candidates produced per pipeline stage",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 400},
		},
		[]string{"stage"}, // "primary", "fallback", "offline"
	)

	OfflineFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nexttrack_offline_fallbacks_total",
			Help: "Total pipeline runs that consulted the offline catalog",
		},
	)

	// Upstream provider metrics.

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexttrack_provider_requests_total",
			Help: "Total upstream provider requests",
		},
		[]string{"provider", "operation", "status"}, // status: "ok", "error"
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexttrack_provider_request_duration_seconds",
			Help:    "Upstream provider request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexttrack_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	// Cache metrics.

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexttrack_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache"}, // "response", "artwork"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexttrack_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache"},
	)

	// HTTP surface metrics.

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexttrack_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexttrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexttrack_http_active_requests",
			Help: "In-flight HTTP requests",
		},
	)
)

// RecordPipelineRun records one completed pipeline run.
func RecordPipelineRun(outcome string, elapsed time.Duration) {
	PipelineRuns.WithLabelValues(outcome).Inc()
	PipelineDuration.Observe(elapsed.Seconds())
}

// RecordStage records how many candidates a stage produced.
func RecordStage(stage string, count int) {
	StageCandidates.WithLabelValues(stage).Observe(float64(count))
}

// RecordProviderRequest records one upstream call.
func RecordProviderRequest(provider, operation string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderRequests.WithLabelValues(provider, operation, status).Inc()
	ProviderDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, statusCode int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}
