// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package metrics provides Prometheus instrumentation for the chat engine:
// API latency, WebSocket connections, presence set sizes, message ingest,
// fan-out delivery, poll activity, and database query performance.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mingle_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mingle_api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mingle_ws_connections",
			Help: "Number of open WebSocket connections",
		},
	)

	WSSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mingle_ws_room_subscriptions",
			Help: "Number of active room subscriptions across all connections",
		},
	)

	WSDroppedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mingle_ws_dropped_messages_total",
			Help: "Messages dropped because a client send buffer was full",
		},
	)

	// Presence metrics
	PresenceOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mingle_presence_online_total",
			Help: "Total identities currently marked online across all rooms",
		},
	)

	PresenceEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mingle_presence_ttl_evictions_total",
			Help: "Presence entries evicted by the TTL janitor (missed disconnects)",
		},
	)

	// Chat engine metrics
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mingle_messages_ingested_total",
			Help: "Messages persisted, by type",
		},
		[]string{"type"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mingle_ingest_duration_seconds",
			Help:    "Duration of message ingest (validate, snapshot, persist)",
			Buckets: prometheus.DefBuckets,
		},
	)

	VoteCasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mingle_vote_casts_total",
			Help: "Accepted castVote operations",
		},
	)

	BroadcastsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mingle_broadcasts_published_total",
			Help: "Events published to room channels, by event type",
		},
		[]string{"event"},
	)

	BroadcastFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mingle_broadcast_failures_total",
			Help: "Publish failures (logged and dropped, never retried)",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mingle_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mingle_db_query_errors_total",
			Help: "Total DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Collaborator metrics
	CollabRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mingle_collab_requests_total",
			Help: "Outbound collaborator requests, by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	ProfileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mingle_profile_cache_hits_total",
			Help: "Directory profile cache hits",
		},
	)

	ProfileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mingle_profile_cache_misses_total",
			Help: "Directory profile cache misses",
		},
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a query duration and, when err is non-nil, an error.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordBroadcast records a publish attempt for the given event type.
func RecordBroadcast(event string, err error) {
	if err != nil {
		BroadcastFailures.Inc()
		return
	}
	BroadcastsPublished.WithLabelValues(event).Inc()
}

// RecordCollabRequest records an outbound collaborator call outcome.
func RecordCollabRequest(service string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CollabRequests.WithLabelValues(service, outcome).Inc()
}
