// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
push.go - Outbound Push Batches

Availability and rates travel as one wire message per batch; reservations
are notified one by one because each carries its own lifecycle verb.
Partial failure never rolls back earlier successes: the batch result
carries per-item errors so an operator can re-drive only the failed
subset. Context cancellation stops a reservation batch between items and
marks the result cancelled.
*/

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	"github.com/adriatichotels/channelbridge/internal/retry"
)

// PushAvailability pushes a batch of availability updates.
func (m *Manager) PushAvailability(ctx context.Context, updates []models.AvailabilityUpdate) (*models.BatchResult, error) {
	if !m.tryAcquire(models.EntityAvailability) {
		return nil, ErrSyncInFlight
	}
	defer m.release(models.EntityAvailability)

	start := time.Now()
	trace := m.tracer.StartTrace("push_availability")
	defer m.tracer.EndTrace(trace)

	result := &models.BatchResult{Kind: models.EntityAvailability, RecordsProcessed: len(updates)}
	rec := models.NewSyncRecord(models.EntityAvailability, m.cfg.Channel, models.DirectionOutbound)
	if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
		return nil, err
	}

	m.tracer.AddStep(trace, "map")
	mapped := m.mapper.MapAvailability(updates)
	if !mapped.Success {
		m.tracer.CompleteStep(trace, "map", mappingError(mapped.Errors))
		return m.failBatch(ctx, rec, result, "mapping", mapped.Errors), nil
	}
	m.tracer.CompleteStep(trace, "map", nil)
	m.warnAll(mapped.Warnings)

	req, err := m.builder.BuildAvailabilityUpdate(mapped.Data)
	if err != nil {
		return m.failBatch(ctx, rec, result, "build", []string{err.Error()}), nil
	}

	m.tracer.AddStep(trace, "send")
	wire, outcome := m.send(ctx, "push_availability", trace, req, rec)
	m.tracer.CompleteStep(trace, "send", errOrNil(outcome.Err))
	m.finishBatch(ctx, rec, result, wire, outcome, start)
	return result, nil
}

// PushRates pushes a batch of rate updates.
func (m *Manager) PushRates(ctx context.Context, updates []models.RateUpdate) (*models.BatchResult, error) {
	if !m.tryAcquire(models.EntityRate) {
		return nil, ErrSyncInFlight
	}
	defer m.release(models.EntityRate)

	start := time.Now()
	trace := m.tracer.StartTrace("push_rates")
	defer m.tracer.EndTrace(trace)

	result := &models.BatchResult{Kind: models.EntityRate, RecordsProcessed: len(updates)}
	rec := models.NewSyncRecord(models.EntityRate, m.cfg.Channel, models.DirectionOutbound)
	if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
		return nil, err
	}

	m.tracer.AddStep(trace, "map")
	mapped := m.mapper.MapRates(updates)
	if !mapped.Success {
		m.tracer.CompleteStep(trace, "map", mappingError(mapped.Errors))
		return m.failBatch(ctx, rec, result, "mapping", mapped.Errors), nil
	}
	m.tracer.CompleteStep(trace, "map", nil)
	m.warnAll(mapped.Warnings)

	req, err := m.builder.BuildRateUpdate(mapped.Data)
	if err != nil {
		return m.failBatch(ctx, rec, result, "build", []string{err.Error()}), nil
	}

	m.tracer.AddStep(trace, "send")
	wire, outcome := m.send(ctx, "push_rates", trace, req, rec)
	m.tracer.CompleteStep(trace, "send", errOrNil(outcome.Err))
	m.finishBatch(ctx, rec, result, wire, outcome, start)
	return result, nil
}

// reservationKind maps a reservation's state to the outbound verb.
func reservationKind(r *models.Reservation) phobs.RequestKind {
	switch {
	case r.Status == models.StatusCancelled || r.Status == models.StatusRoomClosure:
		return phobs.KindReservationCancel
	case r.ExternalID.IsZero():
		return phobs.KindReservationCreate
	default:
		return phobs.KindReservationModify
	}
}

// PushReservations notifies the channel manager of each reservation in
// turn. Items fail independently; cancellation stops between items.
func (m *Manager) PushReservations(ctx context.Context, reservations []*models.Reservation) (*models.BatchResult, error) {
	if !m.tryAcquire(models.EntityReservation) {
		return nil, ErrSyncInFlight
	}
	defer m.release(models.EntityReservation)

	start := time.Now()
	trace := m.tracer.StartTrace("push_reservations")
	defer m.tracer.EndTrace(trace)

	result := &models.BatchResult{Kind: models.EntityReservation, RecordsProcessed: len(reservations)}

	for i, r := range reservations {
		if ctx.Err() != nil {
			result.Cancelled = true
			result.RecordsProcessed = i
			m.log.Warn().Int("completed", i).Int("total", len(reservations)).
				Msg("Reservation batch cancelled mid-flight")
			break
		}
		if m.pushOneReservation(ctx, trace, r, result, i) {
			result.RecordsSuccessful++
		} else {
			result.RecordsFailed++
		}
	}

	result.Duration = time.Since(start)
	metrics.RecordBatch(string(models.EntityReservation), result.Duration, result.RecordsSuccessful, result.RecordsFailed)
	m.log.Info().Int("processed", result.RecordsProcessed).
		Int("failed", result.RecordsFailed).Bool("cancelled", result.Cancelled).
		Dur("duration", result.Duration).Msg("Reservation push finished")
	return result, nil
}

func (m *Manager) pushOneReservation(ctx context.Context, trace string, r *models.Reservation, result *models.BatchResult, index int) bool {
	rec := models.NewSyncRecord(models.EntityReservation, m.cfg.Channel, models.DirectionOutbound)
	rec.InternalID = r.ID
	rec.ExternalID = r.ExternalID
	if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
		m.log.Error().Err(err).Msg("Sync record save failed")
	}

	fail := func(kind, msg string) bool {
		result.Errors = append(result.Errors, models.ItemError{
			Index:      index,
			InternalID: r.ID,
			ExternalID: r.ExternalID,
			Kind:       kind,
			Message:    msg,
		})
		rec.Status = models.SyncFailed
		rec.LastError = msg
		rec.UpdatedAt = time.Now().UTC()
		if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
			m.log.Error().Err(err).Msg("Sync record save failed")
		}
		return false
	}

	mapped := m.mapper.ToExternal(r)
	if !mapped.Success {
		return fail("validation", mapped.Errors[0])
	}
	m.warnAll(mapped.Warnings)

	kind := reservationKind(r)
	req, err := m.builder.BuildReservationNotif(kind, mapped.Data)
	if err != nil {
		return fail("build", err.Error())
	}

	wire, outcome := m.send(ctx, "push_reservation", trace, req, rec)
	if !outcome.Success {
		return fail(string(outcome.Err.Kind), outcome.Err.Error())
	}
	if len(wire.Errors) > 0 {
		return fail("wire_error", wire.Errors[0].Message)
	}

	// A create is assigned its channel id in the response.
	if r.ExternalID.IsZero() && len(wire.Reservations) > 0 && wire.Reservations[0].ExternalID != "" {
		r.ExternalID = models.ExternalReservationID(wire.Reservations[0].ExternalID)
		if err := m.store.UpsertReservation(ctx, r); err != nil {
			m.log.Error().Err(err).Msg("Reservation upsert failed after create")
		}
	}

	m.finishRecord(ctx, rec, outcome, wire.Errors)
	return true
}

// failBatch records a batch-level failure (mapping or build) where no
// request reached the wire.
func (m *Manager) failBatch(ctx context.Context, rec *models.SyncRecord, result *models.BatchResult, kind string, errs []string) *models.BatchResult {
	result.RecordsFailed = result.RecordsProcessed
	for _, e := range errs {
		result.Errors = append(result.Errors, models.ItemError{Kind: kind, Message: e})
	}
	rec.Status = models.SyncFailed
	if len(errs) > 0 {
		rec.LastError = errs[0]
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
		m.log.Error().Err(err).Msg("Sync record save failed")
	}
	m.log.Error().Str("kind", string(result.Kind)).Strs("errors", errs).Msg("Push batch failed before send")
	return result
}

// finishBatch settles a single-message batch after the send.
func (m *Manager) finishBatch(ctx context.Context, rec *models.SyncRecord, result *models.BatchResult, wire *phobs.ParsedResult, outcome retry.Outcome, start time.Time) {
	var wireErrs []phobs.WireError
	switch {
	case !outcome.Success:
		result.RecordsFailed = result.RecordsProcessed
		item := models.ItemError{Kind: "send"}
		if outcome.Err != nil {
			item.Kind = string(outcome.Err.Kind)
			item.Message = outcome.Err.Error()
		}
		result.Errors = append(result.Errors, item)
	case len(wire.Errors) > 0:
		wireErrs = wire.Errors
		result.RecordsFailed = len(wire.Errors)
		if result.RecordsFailed > result.RecordsProcessed {
			result.RecordsFailed = result.RecordsProcessed
		}
		result.RecordsSuccessful = result.RecordsProcessed - result.RecordsFailed
		for i, e := range wire.Errors {
			result.Errors = append(result.Errors, models.ItemError{
				Index:   i,
				Kind:    "wire_error",
				Message: e.Message,
			})
		}
	default:
		result.RecordsSuccessful = result.RecordsProcessed
	}

	result.Duration = time.Since(start)
	metrics.RecordBatch(string(result.Kind), result.Duration, result.RecordsSuccessful, result.RecordsFailed)
	m.finishRecord(ctx, rec, outcome, wireErrs)
	m.log.Info().Str("kind", string(result.Kind)).
		Int("processed", result.RecordsProcessed).Int("failed", result.RecordsFailed).
		Dur("duration", result.Duration).Msg("Push batch finished")
}

func (m *Manager) warnAll(warnings []string) {
	for _, w := range warnings {
		m.log.Warn().Msg(w)
	}
}

func errOrNil(ce *retry.ClassifiedError) error {
	if ce == nil {
		return nil
	}
	return ce
}

func mappingError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(errs[0])
}
