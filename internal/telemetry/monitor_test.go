// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package telemetry

import (
	"testing"
	"time"

	"github.com/adriatichotels/channelbridge/internal/retry"
)

func failedAttempt(kind retry.Kind) *retry.ClassifiedError {
	return &retry.ClassifiedError{Kind: kind, Retryable: kind.Retryable(), Operation: "push_rates"}
}

func TestMonitorAggregates(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	m.RecordAttempt("push_rates", 1, 100*time.Millisecond, nil)
	m.RecordAttempt("push_rates", 1, 200*time.Millisecond, failedAttempt(retry.KindRateLimit))
	m.RecordAttempt("push_rates", 2, 300*time.Millisecond, failedAttempt(retry.KindRateLimit))
	m.RecordAttempt("push_rates", 1, 200*time.Millisecond, failedAttempt(retry.KindServer))
	m.RecordAttempt("pull_reservations", 1, 50*time.Millisecond, nil)

	stats := m.Stats("push_rates")
	if stats.Total != 4 || stats.Failures != 3 {
		t.Errorf("total/failures = %d/%d", stats.Total, stats.Failures)
	}
	if stats.SuccessRate != 0.25 {
		t.Errorf("success rate = %v", stats.SuccessRate)
	}
	if stats.AvgDuration != 200*time.Millisecond {
		t.Errorf("avg duration = %v", stats.AvgDuration)
	}
	if stats.ErrorsByKind[retry.KindRateLimit] != 2 || stats.ErrorsByKind[retry.KindServer] != 1 {
		t.Errorf("errors by kind = %v", stats.ErrorsByKind)
	}

	if ops := m.Operations(); len(ops) != 2 || ops[0] != "pull_reservations" {
		t.Errorf("operations = %v", ops)
	}

	empty := m.Stats("never_seen")
	if empty.Total != 0 || empty.ErrorsByKind == nil {
		t.Errorf("unknown operation stats = %+v", empty)
	}
}

func TestMonitorFeedsRecommendation(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	for range 8 {
		m.RecordAttempt("push_avail", 1, time.Second, failedAttempt(retry.KindRateLimit))
	}
	m.RecordAttempt("push_avail", 1, time.Second, nil)

	current := retry.DefaultPolicy()
	rec := retry.Recommend(current, m.Stats("push_avail"))
	if rec.BaseDelay != current.BaseDelay*4 {
		t.Errorf("rate-limit dominated stats must quadruple base delay, got %v", rec.BaseDelay)
	}
}

func TestMonitorEvictionByCount(t *testing.T) {
	m := NewMonitor(MonitorConfig{MaxEntries: 10})
	for range 25 {
		m.RecordAttempt("op", 1, time.Millisecond, nil)
	}
	if got := len(m.Recent("", 100)); got != 10 {
		t.Errorf("buffer length = %d, want 10", got)
	}
	// Aggregates survive eviction.
	if stats := m.Stats("op"); stats.Total != 25 {
		t.Errorf("total = %d, want 25", stats.Total)
	}
}

func TestMonitorEvictionByAge(t *testing.T) {
	m := NewMonitor(MonitorConfig{MaxAge: time.Minute})
	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.RecordAttempt("op", 1, time.Millisecond, nil)
	m.RecordAttempt("op", 1, time.Millisecond, nil)
	clock = clock.Add(2 * time.Minute)
	m.RecordAttempt("op", 1, time.Millisecond, nil)

	if got := len(m.Recent("", 100)); got != 1 {
		t.Errorf("buffer length = %d, want 1 after age eviction", got)
	}
}

func TestMonitorEntryLevelsAndCorrelation(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	mon := m.WithCorrelation("trace-abc")

	mon.NotifyRetrying("push_rates", 1, time.Second, failedAttempt(retry.KindServer))
	mon.RecordAttempt("push_rates", 1, time.Millisecond, failedAttempt(retry.KindServer))
	mon.RecordAttempt("push_rates", 2, time.Millisecond, nil)

	entries := m.Recent("push_rates", 10)
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	// Newest first: success, failed attempt, retry notice.
	if entries[0].Level != LevelInfo || entries[1].Level != LevelError || entries[2].Level != LevelWarn {
		t.Errorf("levels = %q %q %q", entries[0].Level, entries[1].Level, entries[2].Level)
	}
	for i, e := range entries {
		if e.CorrelationID != "trace-abc" {
			t.Errorf("entry %d correlation id = %q", i, e.CorrelationID)
		}
	}

	// The uncorrelated view leaves the id empty.
	m.RecordAttempt("push_rates", 1, time.Millisecond, nil)
	if got := m.Recent("push_rates", 1)[0]; got.CorrelationID != "" {
		t.Errorf("uncorrelated entry id = %q", got.CorrelationID)
	}

	// Correlated attempts still feed the shared aggregates.
	if stats := m.Stats("push_rates"); stats.Total != 3 || stats.Failures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMonitorRecentFilters(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	m.RecordAttempt("a", 1, time.Millisecond, nil)
	m.RecordAttempt("b", 1, time.Millisecond, nil)
	m.RecordAttempt("a", 2, time.Millisecond, nil)

	got := m.Recent("a", 10)
	if len(got) != 2 {
		t.Fatalf("filtered entries = %d", len(got))
	}
	if got[0].Attempt != 2 {
		t.Error("entries must be newest first")
	}
}
