// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package sync

import (
	"context"
	"time"

	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/retry"
	"github.com/adriatichotels/channelbridge/internal/telemetry"
)

// breakerStater is satisfied by senders wrapped in a circuit breaker.
type breakerStater interface {
	State() string
}

// OperationStatus is the status view of one operation.
type OperationStatus struct {
	Total       int64         `json:"total"`
	Failures    int64         `json:"failures"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// EngineStatus is the operator-facing status snapshot served by the API.
type EngineStatus struct {
	Channel         string                     `json:"channel"`
	QueueLength     int                        `json:"queue_length"`
	ActiveConflicts int                        `json:"active_conflicts"`
	LastPull        *time.Time                 `json:"last_pull,omitempty"`
	InFlight        []string                   `json:"in_flight,omitempty"`
	BreakerState    string                     `json:"breaker_state,omitempty"`
	Operations      map[string]OperationStatus `json:"operations"`
	RecentAlerts    []telemetry.Alert          `json:"recent_alerts,omitempty"`
}

// Status assembles the current engine status.
func (m *Manager) Status(ctx context.Context) (*EngineStatus, error) {
	queued, err := m.store.CountQueued(ctx)
	if err != nil {
		return nil, err
	}
	active, err := m.store.ListConflicts(ctx, true)
	if err != nil {
		return nil, err
	}

	status := &EngineStatus{
		Channel:         m.cfg.Channel.String(),
		QueueLength:     queued,
		ActiveConflicts: len(active),
		Operations:      make(map[string]OperationStatus),
	}

	for _, op := range m.monitor.Operations() {
		stats := m.monitor.Stats(op)
		status.Operations[op] = OperationStatus{
			Total:       stats.Total,
			Failures:    stats.Failures,
			SuccessRate: stats.SuccessRate,
			AvgDuration: stats.AvgDuration,
		}
	}

	m.mu.Lock()
	if !m.lastPull.IsZero() {
		lp := m.lastPull
		status.LastPull = &lp
	}
	for kind, busy := range m.inflight {
		if busy {
			status.InFlight = append(status.InFlight, string(kind))
		}
	}
	m.mu.Unlock()

	if bs, ok := m.sender.(breakerStater); ok {
		status.BreakerState = bs.State()
	}
	if m.alerter != nil {
		status.RecentAlerts = m.alerter.Recent()
	}
	return status, nil
}

// Conflicts lists conflict records, optionally only the active ones.
func (m *Manager) Conflicts(ctx context.Context, activeOnly bool) ([]*models.ConflictRecord, error) {
	return m.store.ListConflicts(ctx, activeOnly)
}

// Stats exposes the telemetry aggregates for one operation.
func (m *Manager) Stats(operation string) retry.Stats {
	return m.monitor.Stats(operation)
}

// RecentTraces returns the most recent operation traces.
func (m *Manager) RecentTraces(limit int) []*telemetry.Trace {
	return m.tracer.Recent(limit)
}
