// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
monitor.go - Sync Telemetry Monitor

The monitor is the retry engine's observer: it keeps a bounded in-memory
buffer of recent attempt entries and running per-operation aggregates.
The buffer is evicted by count and by age so an engine left running for
months holds a stable amount of memory. Aggregates feed the adaptive
policy recommendation (retry.Recommend) and the status API.
*/

package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/adriatichotels/channelbridge/internal/retry"
)

// Entry is one recorded attempt or retry notice.
type Entry struct {
	Operation     string        `json:"operation"`
	Level         string        `json:"level"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Attempt       int           `json:"attempt"`
	Duration      time.Duration `json:"duration,omitempty"`
	Kind          retry.Kind    `json:"kind,omitempty"`
	Message       string        `json:"message,omitempty"`
	At            time.Time     `json:"at"`
}

// Entry levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// MonitorConfig bounds the monitor's retention.
type MonitorConfig struct {
	// MaxEntries caps the attempt buffer. Default: 1000.
	MaxEntries int

	// MaxAge evicts entries older than this on every write. Default: 1h.
	MaxAge time.Duration
}

type opStats struct {
	total         int64
	failures      int64
	totalDuration time.Duration
	errorsByKind  map[retry.Kind]int64
}

// Monitor accumulates retry telemetry. It implements retry.Monitor and is
// safe for concurrent use.
type Monitor struct {
	cfg MonitorConfig

	mu      sync.Mutex
	entries []Entry
	stats   map[string]*opStats

	now func() time.Time
}

// NewMonitor creates a telemetry monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	return &Monitor{
		cfg:   cfg,
		stats: make(map[string]*opStats),
		now:   time.Now,
	}
}

// append adds an entry and applies both eviction bounds. Callers hold m.mu.
func (m *Monitor) append(e Entry) {
	m.entries = append(m.entries, e)

	cutoff := m.now().Add(-m.cfg.MaxAge)
	first := 0
	for first < len(m.entries) && m.entries[first].At.Before(cutoff) {
		first++
	}
	if over := len(m.entries) - first - m.cfg.MaxEntries; over > 0 {
		first += over
	}
	if first > 0 {
		m.entries = append(m.entries[:0], m.entries[first:]...)
	}
}

func (m *Monitor) statsFor(operation string) *opStats {
	s, ok := m.stats[operation]
	if !ok {
		s = &opStats{errorsByKind: make(map[retry.Kind]int64)}
		m.stats[operation] = s
	}
	return s
}

// RecordAttempt records one attempt. A nil cerr marks success.
func (m *Monitor) RecordAttempt(operation string, attempt int, duration time.Duration, cerr *retry.ClassifiedError) {
	m.recordAttempt("", operation, attempt, duration, cerr)
}

func (m *Monitor) recordAttempt(correlationID, operation string, attempt int, duration time.Duration, cerr *retry.ClassifiedError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := Entry{
		Operation:     operation,
		Level:         LevelInfo,
		CorrelationID: correlationID,
		Attempt:       attempt,
		Duration:      duration,
		At:            m.now(),
	}
	s := m.statsFor(operation)
	s.total++
	s.totalDuration += duration
	if cerr != nil {
		e.Level = LevelError
		e.Kind = cerr.Kind
		e.Message = cerr.Error()
		s.failures++
		s.errorsByKind[cerr.Kind]++
	}
	m.append(e)
}

// NotifyRetrying records an upcoming retry. Pure bookkeeping; the engine
// already logged the event.
func (m *Monitor) NotifyRetrying(operation string, attempt int, delay time.Duration, cerr *retry.ClassifiedError) {
	m.notifyRetrying("", operation, attempt, delay, cerr)
}

func (m *Monitor) notifyRetrying(correlationID, operation string, attempt int, delay time.Duration, cerr *retry.ClassifiedError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := Entry{
		Operation:     operation,
		Level:         LevelWarn,
		CorrelationID: correlationID,
		Attempt:       attempt,
		Duration:      delay,
		Message:       "retry scheduled",
		At:            m.now(),
	}
	if cerr != nil {
		e.Kind = cerr.Kind
	}
	m.append(e)
}

// WithCorrelation returns a view of the monitor that stamps every entry
// with the given correlation id, typically the trace id of the operation
// making the attempts.
func (m *Monitor) WithCorrelation(id string) retry.Monitor {
	if id == "" {
		return m
	}
	return &correlatedMonitor{m: m, id: id}
}

type correlatedMonitor struct {
	m  *Monitor
	id string
}

func (c *correlatedMonitor) RecordAttempt(operation string, attempt int, duration time.Duration, cerr *retry.ClassifiedError) {
	c.m.recordAttempt(c.id, operation, attempt, duration, cerr)
}

func (c *correlatedMonitor) NotifyRetrying(operation string, attempt int, delay time.Duration, cerr *retry.ClassifiedError) {
	c.m.notifyRetrying(c.id, operation, attempt, delay, cerr)
}

func (c *correlatedMonitor) NotifyOutcome(operation string, outcome retry.Outcome) {
	c.m.NotifyOutcome(operation, outcome)
}

// NotifyOutcome receives the terminal outcome of a retried operation.
// Attempt-level aggregates are already recorded; nothing to add.
func (m *Monitor) NotifyOutcome(string, retry.Outcome) {}

// Stats returns the aggregate view of one operation in the shape the
// adaptive policy recommendation consumes.
func (m *Monitor) Stats(operation string) retry.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[operation]
	if !ok || s.total == 0 {
		return retry.Stats{ErrorsByKind: map[retry.Kind]int64{}}
	}
	byKind := make(map[retry.Kind]int64, len(s.errorsByKind))
	for k, v := range s.errorsByKind {
		byKind[k] = v
	}
	return retry.Stats{
		Total:        s.total,
		Failures:     s.failures,
		SuccessRate:  float64(s.total-s.failures) / float64(s.total),
		AvgDuration:  s.totalDuration / time.Duration(s.total),
		ErrorsByKind: byKind,
	}
}

// Operations returns the known operation names, sorted.
func (m *Monitor) Operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]string, 0, len(m.stats))
	for op := range m.stats {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Recent returns up to limit most recent entries, newest first. An empty
// operation matches all.
func (m *Monitor) Recent(operation string, limit int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}

	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if operation == "" || m.entries[i].Operation == operation {
			out = append(out, m.entries[i])
		}
	}
	return out
}
