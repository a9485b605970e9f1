// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package telemetry

import (
	"fmt"
	"time"

	"sync"

	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/retry"
)

// Condition selects what an alert rule evaluates.
type Condition string

const (
	// CondErrorRate fires when an operation's failure ratio exceeds the
	// threshold (0..1).
	CondErrorRate Condition = "error_rate"

	// CondResponseTime fires when an operation's average attempt duration
	// exceeds the threshold, in seconds.
	CondResponseTime Condition = "response_time"

	// CondQueueLength fires when the pending sync queue exceeds the
	// threshold.
	CondQueueLength Condition = "queue_length"

	// CondOperationFailure fires when an operation's consecutive failure
	// streak reaches the threshold.
	CondOperationFailure Condition = "operation_failure"
)

// Rule is one alert rule.
type Rule struct {
	Name      string    `json:"name" koanf:"name"`
	Condition Condition `json:"condition" koanf:"condition"`

	// Operation scopes the rule; empty matches every operation.
	Operation string `json:"operation,omitempty" koanf:"operation"`

	Threshold float64 `json:"threshold" koanf:"threshold"`

	// Cooldown suppresses re-firing. Default: 5m.
	Cooldown time.Duration `json:"cooldown,omitempty" koanf:"cooldown"`
}

// Validate checks the rule shape.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert rule: name is required")
	}
	switch r.Condition {
	case CondErrorRate, CondResponseTime, CondQueueLength, CondOperationFailure:
	default:
		return fmt.Errorf("alert rule %s: unknown condition %q", r.Name, r.Condition)
	}
	if r.Threshold <= 0 {
		return fmt.Errorf("alert rule %s: threshold must be positive", r.Name)
	}
	return nil
}

// Alert is one fired alert.
type Alert struct {
	Rule      string    `json:"rule"`
	Condition Condition `json:"condition"`
	Operation string    `json:"operation,omitempty"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"at"`
}

// Snapshot is the engine state an evaluation runs against.
type Snapshot struct {
	// Operations maps operation names to their aggregate stats.
	Operations map[string]retry.Stats

	// QueueLength is the count of sync records pending or awaiting retry.
	QueueLength int

	// ConsecutiveFailures maps operation names to their current failure
	// streak.
	ConsecutiveFailures map[string]int
}

// Alerter evaluates rules against snapshots and fires alerts with
// per-rule cooldown. Safe for concurrent use.
type Alerter struct {
	rules  []Rule
	notify func(Alert)

	mu        sync.Mutex
	lastFired map[string]time.Time
	recent    []Alert

	now func() time.Time
}

// NewAlerter creates an alerter. notify may be nil; fired alerts are
// always logged and counted either way.
func NewAlerter(rules []Rule, notify func(Alert)) (*Alerter, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return &Alerter{
		rules:     rules,
		notify:    notify,
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

const maxRecentAlerts = 100

// Evaluate runs every rule against the snapshot.
func (a *Alerter) Evaluate(snap Snapshot) {
	for _, rule := range a.rules {
		switch rule.Condition {
		case CondQueueLength:
			a.check(rule, "", float64(snap.QueueLength))
		case CondErrorRate:
			for op, stats := range a.scoped(rule, snap.Operations) {
				if stats.Total > 0 {
					a.check(rule, op, 1-stats.SuccessRate)
				}
			}
		case CondResponseTime:
			for op, stats := range a.scoped(rule, snap.Operations) {
				a.check(rule, op, stats.AvgDuration.Seconds())
			}
		case CondOperationFailure:
			for op, streak := range snap.ConsecutiveFailures {
				if rule.Operation == "" || rule.Operation == op {
					a.check(rule, op, float64(streak))
				}
			}
		}
	}
}

func (a *Alerter) scoped(rule Rule, ops map[string]retry.Stats) map[string]retry.Stats {
	if rule.Operation == "" {
		return ops
	}
	if stats, ok := ops[rule.Operation]; ok {
		return map[string]retry.Stats{rule.Operation: stats}
	}
	return nil
}

func (a *Alerter) check(rule Rule, operation string, value float64) {
	if value < rule.Threshold {
		return
	}

	a.mu.Lock()
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	key := rule.Name + "/" + operation
	now := a.now()
	if last, ok := a.lastFired[key]; ok && now.Sub(last) < cooldown {
		a.mu.Unlock()
		return
	}
	a.lastFired[key] = now

	alert := Alert{
		Rule:      rule.Name,
		Condition: rule.Condition,
		Operation: operation,
		Value:     value,
		Threshold: rule.Threshold,
		At:        now,
	}
	a.recent = append(a.recent, alert)
	if len(a.recent) > maxRecentAlerts {
		a.recent = append(a.recent[:0], a.recent[len(a.recent)-maxRecentAlerts:]...)
	}
	a.mu.Unlock()

	metrics.AlertsFired.WithLabelValues(rule.Name).Inc()
	logging.Warn().
		Str("rule", rule.Name).
		Str("condition", string(rule.Condition)).
		Str("operation", operation).
		Float64("value", value).
		Float64("threshold", rule.Threshold).
		Msg("Alert fired")
	if a.notify != nil {
		a.notify(alert)
	}
}

// Recent returns the most recently fired alerts, newest first.
func (a *Alerter) Recent() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Alert, len(a.recent))
	for i, al := range a.recent {
		out[len(a.recent)-1-i] = al
	}
	return out
}
