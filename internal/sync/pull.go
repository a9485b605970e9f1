// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
pull.go - Inbound Reservation Pull

The pull is a three-step conversation: request undelivered reservations,
process what arrived, acknowledge what was processed. Only successfully
processed reservations are acknowledged; an item that fails mapping or
storage stays undelivered on the channel side and returns on the next
pull. A failed acknowledgement is non-fatal: the data is already stored,
the channel will simply redeliver, and upserts absorb the duplicates.
*/

package sync

import (
	"context"
	"time"

	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/models"
)

// pullSlot is the single-flight key of the inbound pull. The pull and an
// outbound reservation push are distinct flows and may run concurrently;
// upserts and conflict detection absorb the interleaving.
const pullSlot models.EntityKind = "reservation_pull"

// PullResult reports one inbound pull.
type PullResult struct {
	Received     int                `json:"received"`
	Stored       int                `json:"stored"`
	Failed       int                `json:"failed"`
	Conflicts    int                `json:"conflicts"`
	Errors       []models.ItemError `json:"errors,omitempty"`
	ConfirmError string             `json:"confirm_error,omitempty"`
	Duration     time.Duration      `json:"duration"`
}

// PullReservations runs one inbound pull cycle.
func (m *Manager) PullReservations(ctx context.Context) (*PullResult, error) {
	if !m.tryAcquire(pullSlot) {
		return nil, ErrSyncInFlight
	}
	defer m.release(pullSlot)

	start := time.Now()
	trace := m.tracer.StartTrace("pull_reservations")
	defer m.tracer.EndTrace(trace)

	result := &PullResult{}
	rec := models.NewSyncRecord(models.EntityReservation, m.cfg.Channel, models.DirectionInbound)
	if err := m.store.SaveSyncRecord(ctx, rec); err != nil {
		return nil, err
	}

	// Step 1: request undelivered reservations.
	m.tracer.AddStep(trace, "request")
	req, err := m.builder.BuildReservationPull()
	if err != nil {
		m.tracer.CompleteStep(trace, "request", err)
		return nil, err
	}
	wire, outcome := m.send(ctx, "pull_reservations", trace, req, rec)
	m.tracer.CompleteStep(trace, "request", errOrNil(outcome.Err))
	if !outcome.Success {
		m.finishRecord(ctx, rec, outcome, nil)
		return nil, outcome.Err
	}
	if !wire.Success {
		m.finishRecord(ctx, rec, outcome, wire.Errors)
		result.Duration = time.Since(start)
		for _, e := range wire.Errors {
			result.Errors = append(result.Errors, models.ItemError{Kind: "wire_error", Message: e.Message})
		}
		return result, nil
	}

	// Step 2: map, detect conflicts, store. Per-item failures do not stop
	// the batch.
	m.tracer.AddStep(trace, "process")
	result.Received = len(wire.Reservations)
	var processed []string
	for i, data := range wire.Reservations {
		mapped := m.mapper.ToInternal(data)
		if !mapped.Success {
			result.Failed++
			result.Errors = append(result.Errors, models.ItemError{
				Index:      i,
				ExternalID: models.ExternalReservationID(data.ExternalID),
				Kind:       "validation",
				Message:    mapped.Errors[0],
			})
			continue
		}
		m.warnAll(mapped.Warnings)

		res := mapped.Data
		conflicts, err := m.handleInbound(ctx, &res)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.ItemError{
				Index:      i,
				ExternalID: res.ExternalID,
				Kind:       "storage",
				Message:    err.Error(),
			})
			continue
		}
		result.Conflicts += conflicts
		result.Stored++
		processed = append(processed, data.ExternalID)
	}
	m.tracer.CompleteStep(trace, "process", nil)

	// Step 3: acknowledge what was processed.
	if len(processed) > 0 {
		m.tracer.AddStep(trace, "confirm")
		confirmReq, err := m.builder.BuildReservationConfirm(processed)
		if err == nil {
			if _, co := m.send(ctx, "confirm_reservations", trace, confirmReq, nil); !co.Success {
				err = co.Err
			}
		}
		m.tracer.CompleteStep(trace, "confirm", err)
		if err != nil {
			result.ConfirmError = err.Error()
			m.log.Warn().Err(err).Int("unacknowledged", len(processed)).
				Msg("Pull acknowledgement failed; channel will redeliver")
		}
	}

	result.Duration = time.Since(start)
	metrics.RecordPull(result.Received, result.Failed)
	m.mu.Lock()
	m.lastPull = time.Now().UTC()
	m.mu.Unlock()
	m.finishRecord(ctx, rec, outcome, nil)
	m.log.Info().Int("received", result.Received).Int("stored", result.Stored).
		Int("failed", result.Failed).Int("conflicts", result.Conflicts).
		Dur("duration", result.Duration).Msg("Reservation pull finished")
	return result, nil
}

// handleInbound stores one mapped inbound reservation after conflict
// detection, returning how many conflicts it raised. The reservation is
// stored even when conflicted; the conflict record tracks the dispute
// while both views stay visible.
func (m *Manager) handleInbound(ctx context.Context, res *models.Reservation) (int, error) {
	// Inbound modify/cancel of a known reservation keeps its internal id.
	if existing, err := m.store.GetReservationByExternalID(ctx, res.ExternalID); err == nil {
		res.ID = existing.ID
		if res.BookedAt.IsZero() {
			res.BookedAt = existing.BookedAt
		}
	}

	conflicts, err := m.DetectConflicts(ctx, res)
	if err != nil {
		return 0, err
	}
	for _, c := range conflicts {
		if err := m.resolveOrEscalate(ctx, c); err != nil {
			return 0, err
		}
	}
	if err := m.store.UpsertReservation(ctx, res); err != nil {
		return 0, err
	}
	return len(conflicts), nil
}
