// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/adriatichotels/channelbridge/internal/models"
)

// ErrNotFound is returned by store lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary of the orchestrator. The engine ships
// with an in-memory implementation; a property management system database
// satisfies the same interface in production.
type Store interface {
	// UpsertReservation stores a reservation snapshot, keyed by internal
	// id when set, otherwise by external id.
	UpsertReservation(ctx context.Context, r *models.Reservation) error

	// GetReservationByExternalID looks up a reservation by its channel id.
	GetReservationByExternalID(ctx context.Context, id models.ExternalReservationID) (*models.Reservation, error)

	// ReservationsForRoom returns every stored reservation on a room.
	ReservationsForRoom(ctx context.Context, room models.RoomID) ([]*models.Reservation, error)

	// SaveSyncRecord inserts or updates a sync record.
	SaveSyncRecord(ctx context.Context, rec *models.SyncRecord) error

	// ListSyncRecords returns records in the given status; an empty status
	// matches all.
	ListSyncRecords(ctx context.Context, status models.SyncStatus) ([]*models.SyncRecord, error)

	// CountQueued returns the count of records pending or awaiting retry.
	CountQueued(ctx context.Context) (int, error)

	// SaveConflict inserts or updates a conflict record.
	SaveConflict(ctx context.Context, c *models.ConflictRecord) error

	// GetConflict looks up a conflict by id.
	GetConflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error)

	// ListConflicts returns conflicts, optionally only active ones.
	ListConflicts(ctx context.Context, activeOnly bool) ([]*models.ConflictRecord, error)

	// MarkEventProcessed records a webhook event id and reports whether it
	// was new. A false return means the event was already processed and
	// must be treated as a duplicate.
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)

	// UnmarkEvent removes an event id recorded by MarkEventProcessed so the
	// channel's redelivery of the event is processed again. Unknown ids are
	// a no-op.
	UnmarkEvent(ctx context.Context, eventID string) error
}
