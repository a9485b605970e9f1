// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the sync engine:
// - outbound push batches and inbound pulls
// - retry engine attempts by classified error kind
// - conflict detection and resolution
// - webhook ingestion
// - Phobs client auth and circuit breaker state

var (
	// Sync Operation Metrics
	SyncBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_batch_duration_seconds",
			Help:    "Duration of outbound push batches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"kind"}, // availability, rate, reservation
	)

	SyncRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_processed_total",
			Help: "Total number of records processed during sync",
		},
		[]string{"kind", "direction"},
	)

	SyncRecordsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_failed_total",
			Help: "Total number of records that failed during sync",
		},
		[]string{"kind", "direction"},
	)

	SyncBatchRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_batch_rejected_total",
			Help: "Total number of batches rejected because one was already in flight",
		},
		[]string{"kind"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync",
		},
	)

	SyncQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_length",
			Help: "Count of sync records in pending or retry state",
		},
	)

	// Retry Engine Metrics
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of operation attempts executed by the retry engine",
		},
		[]string{"operation", "result"}, // result: success, failure
	)

	RetryErrorsByKind = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_errors_by_kind_total",
			Help: "Total number of classified errors by kind",
		},
		[]string{"operation", "kind"},
	)

	RetryExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_exhausted_total",
			Help: "Total number of operations that failed after all retry attempts",
		},
		[]string{"operation"},
	)

	// Conflict Metrics
	ConflictsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conflicts_detected_total",
			Help: "Total number of sync conflicts detected",
		},
		[]string{"kind", "severity"},
	)

	ConflictsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conflicts_resolved_total",
			Help: "Total number of sync conflicts resolved",
		},
		[]string{"kind", "resolution"}, // resolution: auto, manual
	)

	ConflictsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conflicts_active",
			Help: "Current number of unresolved conflicts",
		},
	)

	// Webhook Metrics
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of webhook events by type and result",
		},
		[]string{"event_type", "result"}, // result: processed, duplicate, rejected, error
	)

	WebhookSignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Total number of webhook events rejected for invalid signatures",
		},
	)

	// Phobs Client Metrics
	PhobsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phobs_request_duration_seconds",
			Help:    "Duration of Phobs channel-manager requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	PhobsTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phobs_token_refreshes_total",
			Help: "Total number of bearer token refreshes",
		},
		[]string{"reason"}, // expiry, auth_failure
	)

	// Circuit Breaker Metrics
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
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Alerting Metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_fired_total",
			Help: "Total number of telemetry alert rules fired",
		},
		[]string{"rule"},
	)
)

// RecordBatch records the outcome of one outbound push batch.
func RecordBatch(kind string, duration time.Duration, successful, failed int) {
	SyncBatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	SyncRecordsProcessed.WithLabelValues(kind, "outbound").Add(float64(successful + failed))
	SyncRecordsFailed.WithLabelValues(kind, "outbound").Add(float64(failed))
	if failed == 0 && successful > 0 {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordPull records the outcome of one inbound reservation pull.
func RecordPull(received, failed int) {
	SyncRecordsProcessed.WithLabelValues("reservation", "inbound").Add(float64(received))
	SyncRecordsFailed.WithLabelValues("reservation", "inbound").Add(float64(failed))
	if failed == 0 {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordAttempt records one retry engine attempt.
func RecordAttempt(operation string, success bool, errorKind string) {
	result := "success"
	if !success {
		result = "failure"
		RetryErrorsByKind.WithLabelValues(operation, errorKind).Inc()
	}
	RetryAttempts.WithLabelValues(operation, result).Inc()
}

// RecordConflict records a detected conflict.
func RecordConflict(kind, severity string) {
	ConflictsDetected.WithLabelValues(kind, severity).Inc()
	ConflictsActive.Inc()
}

// RecordConflictResolved records a conflict resolution.
func RecordConflictResolved(kind, resolution string) {
	ConflictsResolved.WithLabelValues(kind, resolution).Inc()
	ConflictsActive.Dec()
}

// RecordWebhook records a webhook ingestion outcome.
func RecordWebhook(eventType, result string) {
	WebhookEvents.WithLabelValues(eventType, result).Inc()
}
