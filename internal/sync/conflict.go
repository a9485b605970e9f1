// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
conflict.go - Conflict Detection and Resolution

A conflict is a disagreement between the property's view and the
channel's view: two stays claiming the same room nights, or rates and
availability drifting apart. Detection never mutates data; resolution
follows the configured strategy, with one override that no strategy can
disable: an external cancellation always wins, because selling a room
the guest already cancelled is worse than any internal inconsistency.
*/

package sync

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/models"
)

// occupying reports whether a reservation holds its room nights.
func occupying(s models.ReservationStatus) bool {
	switch s {
	case models.StatusPending, models.StatusConfirmed, models.StatusCheckedIn, models.StatusRoomClosure:
		return true
	default:
		return false
	}
}

// DetectConflicts checks an incoming reservation against the stored view
// of its room and returns new conflict records, already persisted in the
// detected state.
func (m *Manager) DetectConflicts(ctx context.Context, incoming *models.Reservation) ([]*models.ConflictRecord, error) {
	if !occupying(incoming.Status) {
		return nil, nil
	}

	existing, err := m.store.ReservationsForRoom(ctx, incoming.RoomID)
	if err != nil {
		return nil, fmt.Errorf("conflict detection: %w", err)
	}

	var conflicts []*models.ConflictRecord
	for _, held := range existing {
		if held.ExternalID != "" && held.ExternalID == incoming.ExternalID {
			continue // same reservation, updated
		}
		if !held.ID.IsZero() && held.ID == incoming.ID {
			continue
		}
		if !occupying(held.Status) || !held.Overlaps(incoming) {
			continue
		}

		c := models.NewConflictRecord(models.ConflictDoubleBooking, doubleBookingSeverity(held, incoming), m.cfg.Channel)
		heldCopy, incomingCopy := *held, *incoming
		c.InternalData = &heldCopy
		c.ExternalData = &incomingCopy
		c.AffectedEntities = []string{
			"room:" + incoming.RoomID.String(),
			"reservation:" + held.ID.String(),
			"reservation:" + incoming.ExternalID.String(),
		}
		c.SuggestedAction = "relocate one stay or cancel the later booking"
		c.AutoResolvable = m.cfg.ConflictStrategy != StrategyManual
		if err := m.store.SaveConflict(ctx, c); err != nil {
			return nil, err
		}
		metrics.RecordConflict(string(c.Kind), string(c.Severity))
		m.log.Warn().Str("conflict", c.ID.String()).
			Str("room", incoming.RoomID.String()).
			Str("severity", string(c.Severity)).
			Msg("Double booking detected")
		conflicts = append(conflicts, c)
	}
	return conflicts, nil
}

// doubleBookingSeverity grades a double booking. Two confirmed stays over
// the same nights are critical; anything involving a tentative side is
// one grade lower, raised again when the stays differ in party size
// enough that relocation is unlikely to be simple.
func doubleBookingSeverity(a, b *models.Reservation) models.ConflictSeverity {
	sev := models.SeverityHigh
	if a.Status == models.StatusConfirmed && b.Status == models.StatusConfirmed {
		sev = models.SeverityCritical
	}
	if sev == models.SeverityHigh {
		guestGap := a.NumberOfGuests() - b.NumberOfGuests()
		if guestGap < 0 {
			guestGap = -guestGap
		}
		if guestGap >= 2 {
			sev = models.SeverityCritical
		}
	}
	return sev
}

// DetectRateMismatch compares an internal and an external rate for the
// same room type and rate plan, recording a conflict when they differ
// beyond the configured tolerance.
func (m *Manager) DetectRateMismatch(ctx context.Context, roomType models.RoomType, ratePlan models.RatePlanCode, internal, external float64) (*models.ConflictRecord, error) {
	if internal <= 0 {
		return nil, nil
	}
	delta := math.Abs(internal-external) / internal
	if delta <= m.cfg.RateTolerance {
		return nil, nil
	}

	c := models.NewConflictRecord(models.ConflictRateMismatch, rateSeverity(delta), m.cfg.Channel)
	c.AffectedEntities = []string{"room_type:" + string(roomType), "rate_plan:" + ratePlan.String()}
	c.SuggestedAction = fmt.Sprintf("internal rate %.2f vs channel rate %.2f (%.1f%% apart); re-push rates", internal, external, delta*100)
	c.AutoResolvable = true
	if err := m.store.SaveConflict(ctx, c); err != nil {
		return nil, err
	}
	metrics.RecordConflict(string(c.Kind), string(c.Severity))
	return c, nil
}

func rateSeverity(delta float64) models.ConflictSeverity {
	switch {
	case delta < 0.05:
		return models.SeverityLow
	case delta < 0.15:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}

// DetectAvailabilityMismatch records a conflict when the channel reports
// different open inventory than the property holds.
func (m *Manager) DetectAvailabilityMismatch(ctx context.Context, roomType models.RoomType, date time.Time, internal, external int) (*models.ConflictRecord, error) {
	if internal == external {
		return nil, nil
	}
	sev := models.SeverityMedium
	if external > internal {
		// The channel is selling rooms the property does not have.
		sev = models.SeverityHigh
	}
	c := models.NewConflictRecord(models.ConflictAvailabilityMismatch, sev, m.cfg.Channel)
	c.AffectedEntities = []string{"room_type:" + string(roomType), "date:" + date.Format("2006-01-02")}
	c.SuggestedAction = fmt.Sprintf("internal availability %d vs channel %d on %s; re-push availability", internal, external, date.Format("2006-01-02"))
	c.AutoResolvable = true
	if err := m.store.SaveConflict(ctx, c); err != nil {
		return nil, err
	}
	metrics.RecordConflict(string(c.Kind), string(c.Severity))
	return c, nil
}

// resolveOrEscalate applies the configured strategy to a fresh conflict.
func (m *Manager) resolveOrEscalate(ctx context.Context, c *models.ConflictRecord) error {
	// External cancellation wins unconditionally: the disputed external
	// stay is gone, so there is nothing left to conflict with.
	if c.ExternalData != nil && c.ExternalData.Status == models.StatusCancelled {
		return m.closeConflict(ctx, c, "external_cancellation", "auto")
	}

	switch m.cfg.ConflictStrategy {
	case StrategyFavorInternal:
		return m.closeConflict(ctx, c, string(StrategyFavorInternal), "auto")
	case StrategyFavorChannel:
		if c.ExternalData != nil {
			if err := m.store.UpsertReservation(ctx, c.ExternalData); err != nil {
				return err
			}
		}
		return m.closeConflict(ctx, c, string(StrategyFavorChannel), "auto")
	default:
		c.Status = models.ConflictEscalated
		return m.store.SaveConflict(ctx, c)
	}
}

func (m *Manager) closeConflict(ctx context.Context, c *models.ConflictRecord, resolution, how string) error {
	now := time.Now().UTC()
	c.Status = models.ConflictResolved
	c.Resolution = resolution
	c.ResolvedAt = &now
	if err := m.store.SaveConflict(ctx, c); err != nil {
		return err
	}
	metrics.RecordConflictResolved(string(c.Kind), how)
	m.log.Info().Str("conflict", c.ID.String()).Str("resolution", resolution).
		Msg("Conflict resolved")
	return nil
}

// ResolveConflict closes a conflict manually with the operator's
// resolution note. Already-resolved conflicts are rejected.
func (m *Manager) ResolveConflict(ctx context.Context, id uuid.UUID, resolution string) (*models.ConflictRecord, error) {
	c, err := m.store.GetConflict(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Active() {
		return nil, fmt.Errorf("conflict %s is already %s", id, c.Status)
	}
	if resolution == "" {
		resolution = "manual"
	}
	if err := m.closeConflict(ctx, c, resolution, "manual"); err != nil {
		return nil, err
	}
	return c, nil
}
