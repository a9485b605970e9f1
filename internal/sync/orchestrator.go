// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
orchestrator.go - Sync Orchestrator

The Manager coordinates every data movement between the property and the
channel manager: outbound push batches, the periodic inbound pull,
webhook ingestion and conflict handling. One batch per entity kind runs
at a time; a second request for the same kind is rejected, not queued,
so a slow channel manager cannot pile up concurrent identical batches.
*/

package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/mapper"
	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	"github.com/adriatichotels/channelbridge/internal/retry"
	"github.com/adriatichotels/channelbridge/internal/telemetry"
)

// ErrSyncInFlight is returned when a batch for the same entity kind is
// already running.
var ErrSyncInFlight = errors.New("sync already in flight for entity kind")

// Strategy selects how detected conflicts are resolved.
type Strategy string

const (
	// StrategyManual leaves every conflict for operator resolution.
	StrategyManual Strategy = "manual"

	// StrategyFavorInternal keeps the property's data.
	StrategyFavorInternal Strategy = "favor_internal"

	// StrategyFavorChannel adopts the channel's data.
	StrategyFavorChannel Strategy = "favor_channel"
)

// Config tunes the orchestrator.
type Config struct {
	// Channel is the channel code stamped on sync records.
	Channel models.ChannelCode

	// PullInterval is the cadence of the periodic reservation pull.
	// Default: 5m.
	PullInterval time.Duration

	// ConflictStrategy selects automatic conflict resolution. Default:
	// manual. An external cancellation always wins regardless of strategy.
	ConflictStrategy Strategy

	// RateTolerance is the relative rate difference below which internal
	// and external rates count as equal. Default: 0.01 (1%).
	RateTolerance float64
}

func (c *Config) applyDefaults() {
	if c.PullInterval <= 0 {
		c.PullInterval = 5 * time.Minute
	}
	if c.ConflictStrategy == "" {
		c.ConflictStrategy = StrategyManual
	}
	if c.RateTolerance <= 0 {
		c.RateTolerance = 0.01
	}
}

// Manager is the sync orchestrator.
type Manager struct {
	cfg     Config
	store   Store
	sender  phobs.Sender
	builder *phobs.RequestBuilder
	mapper  *mapper.Mapper
	engine  *retry.Engine
	monitor *telemetry.Monitor
	tracer  *telemetry.Tracer
	alerter *telemetry.Alerter

	mu       stdsync.Mutex
	inflight map[models.EntityKind]bool
	streaks  map[string]int // consecutive failures per operation
	lastPull time.Time

	log zerolog.Logger
}

// NewManager wires the orchestrator. alerter may be nil.
func NewManager(
	cfg Config,
	store Store,
	sender phobs.Sender,
	builder *phobs.RequestBuilder,
	m *mapper.Mapper,
	engine *retry.Engine,
	monitor *telemetry.Monitor,
	tracer *telemetry.Tracer,
	alerter *telemetry.Alerter,
) (*Manager, error) {
	if store == nil || sender == nil || builder == nil || m == nil || engine == nil {
		return nil, fmt.Errorf("sync manager: store, sender, builder, mapper and engine are required")
	}
	cfg.applyDefaults()
	if monitor == nil {
		monitor = telemetry.NewMonitor(telemetry.MonitorConfig{})
	}
	if tracer == nil {
		tracer = telemetry.NewTracer(0)
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		sender:   sender,
		builder:  builder,
		mapper:   m,
		engine:   engine,
		monitor:  monitor,
		tracer:   tracer,
		alerter:  alerter,
		inflight: make(map[models.EntityKind]bool),
		streaks:  make(map[string]int),
		log:      logging.With().Str("component", "sync").Logger(),
	}, nil
}

// Serve runs the periodic pull and alert evaluation until ctx is
// cancelled. It satisfies the supervision tree's service contract.
func (m *Manager) Serve(ctx context.Context) error {
	m.log.Info().Dur("pull_interval", m.cfg.PullInterval).
		Str("strategy", string(m.cfg.ConflictStrategy)).
		Msg("Sync orchestrator started")

	ticker := time.NewTicker(m.cfg.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Sync orchestrator stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.PullReservations(ctx); err != nil && !errors.Is(err, ErrSyncInFlight) {
				m.log.Error().Err(err).Msg("Periodic pull failed")
			}
			m.evaluateAlerts(ctx)
		}
	}
}

// tryAcquire claims the single-flight slot for a kind.
func (m *Manager) tryAcquire(kind models.EntityKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[kind] {
		metrics.SyncBatchRejected.WithLabelValues(string(kind)).Inc()
		return false
	}
	m.inflight[kind] = true
	return true
}

func (m *Manager) release(kind models.EntityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight[kind] = false
}

// trackOutcome maintains per-operation consecutive failure streaks for
// the operation_failure alert condition.
func (m *Manager) trackOutcome(operation string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.streaks[operation] = 0
	} else {
		m.streaks[operation]++
	}
}

func (m *Manager) evaluateAlerts(ctx context.Context) {
	if m.alerter == nil {
		return
	}
	queued, err := m.store.CountQueued(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Queue count failed")
	}
	metrics.SyncQueueLength.Set(float64(queued))

	ops := make(map[string]retry.Stats)
	for _, op := range m.monitor.Operations() {
		ops[op] = m.monitor.Stats(op)
	}

	m.mu.Lock()
	streaks := make(map[string]int, len(m.streaks))
	for op, n := range m.streaks {
		streaks[op] = n
	}
	m.mu.Unlock()

	m.alerter.Evaluate(telemetry.Snapshot{
		Operations:          ops,
		QueueLength:         queued,
		ConsecutiveFailures: streaks,
	})
}

// RecommendPolicy returns the advisory retry policy adjustment for an
// operation based on its recent telemetry.
func (m *Manager) RecommendPolicy(operation string) retry.Policy {
	return retry.Recommend(m.engine.Policy(), m.monitor.Stats(operation))
}

// recordProgress mirrors retry engine notifications onto a sync record:
// the record enters retry while the engine backs off and carries the live
// attempt count, so the queue reflects work awaiting a retry.
type recordProgress struct {
	retry.Monitor
	ctx   context.Context
	store Store
	rec   *models.SyncRecord
	log   zerolog.Logger
}

func (p *recordProgress) RecordAttempt(operation string, attempt int, duration time.Duration, cerr *retry.ClassifiedError) {
	p.rec.Attempts = attempt
	p.Monitor.RecordAttempt(operation, attempt, duration, cerr)
}

func (p *recordProgress) NotifyRetrying(operation string, attempt int, delay time.Duration, cerr *retry.ClassifiedError) {
	p.rec.Status = models.SyncRetry
	p.rec.LastError = cerr.Error()
	p.rec.UpdatedAt = time.Now().UTC()
	if err := p.store.SaveSyncRecord(p.ctx, p.rec); err != nil {
		p.log.Error().Err(err).Str("record", p.rec.ID.String()).Msg("Sync record save failed")
	}
	p.Monitor.NotifyRetrying(operation, attempt, delay, cerr)
}

// send dispatches one wire request under the retry engine. When a sync
// record is given it is moved to in_progress for the duration of the send
// and through retry between failed attempts; traceID correlates the
// telemetry entries with the operation's trace.
func (m *Manager) send(ctx context.Context, operation, traceID string, req *phobs.WireRequest, rec *models.SyncRecord) (*phobs.ParsedResult, retry.Outcome) {
	mon := m.monitor.WithCorrelation(traceID)
	if rec != nil {
		rec.Status = models.SyncInProgress
		rec.UpdatedAt = time.Now().UTC()
		if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
			m.log.Error().Err(err).Str("record", rec.ID.String()).Msg("Sync record save failed")
		}
		mon = &recordProgress{Monitor: mon, ctx: ctx, store: m.store, rec: rec, log: m.log}
	}
	result, outcome := retry.Do(ctx, m.engine.WithMonitor(mon), operation, func(ctx context.Context) (*phobs.ParsedResult, error) {
		return m.sender.Send(ctx, req)
	})
	m.trackOutcome(operation, outcome.Success)
	return result, outcome
}

// finishRecord moves a sync record to its terminal state and persists it.
func (m *Manager) finishRecord(ctx context.Context, rec *models.SyncRecord, outcome retry.Outcome, wireErrs []phobs.WireError) {
	rec.Attempts = outcome.Attempts
	rec.UpdatedAt = time.Now().UTC()
	switch {
	case outcome.Success && len(wireErrs) == 0:
		rec.Status = models.SyncCompleted
		rec.LastError = ""
	case outcome.Success:
		rec.Status = models.SyncFailed
		rec.LastError = wireErrs[0].Message
	default:
		rec.Status = models.SyncFailed
		if outcome.Err != nil {
			rec.LastError = outcome.Err.Error()
		}
	}
	if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
		m.log.Error().Err(err).Str("record", rec.ID.String()).Msg("Sync record save failed")
	}
}
