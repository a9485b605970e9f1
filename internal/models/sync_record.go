// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind names the kind of entity a sync record tracks.
type EntityKind string

const (
	EntityReservation  EntityKind = "reservation"
	EntityAvailability EntityKind = "availability"
	EntityRate         EntityKind = "rate"
)

// SyncDirection is the direction of a sync attempt.
type SyncDirection string

const (
	DirectionOutbound SyncDirection = "outbound"
	DirectionInbound  SyncDirection = "inbound"
)

// SyncStatus is the sync record state machine:
//
//	pending -> in_progress -> completed
//	                       -> failed -> retry -> in_progress
//	                       -> failed (terminal)
//
// A record re-enters retry only while the underlying error is retryable
// and attempts remain.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
	SyncRetry      SyncStatus = "retry"
)

// Terminal reports whether the status ends the record lifecycle.
func (s SyncStatus) Terminal() bool {
	return s == SyncCompleted || s == SyncFailed
}

// SyncRecord is the orchestrator's bookkeeping unit for one entity's sync
// attempt(s). Created when a sync is scheduled and mutated only by the
// orchestrator; retained until a terminal state has been observed by
// telemetry.
type SyncRecord struct {
	ID         uuid.UUID             `json:"id"`
	EntityKind EntityKind            `json:"entity_kind"`
	InternalID InternalReservationID `json:"internal_id,omitempty"`
	ExternalID ExternalReservationID `json:"external_id,omitempty"`
	Channel    ChannelCode           `json:"channel"`
	Direction  SyncDirection         `json:"direction"`
	Status     SyncStatus            `json:"status"`
	LastError  string                `json:"last_error,omitempty"`
	Attempts   int                   `json:"attempts"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// NewSyncRecord creates a pending record for a scheduled sync.
func NewSyncRecord(kind EntityKind, channel ChannelCode, direction SyncDirection) *SyncRecord {
	return &SyncRecord{
		ID:         uuid.New(),
		EntityKind: kind,
		Channel:    channel,
		Direction:  direction,
		Status:     SyncPending,
		UpdatedAt:  time.Now().UTC(),
	}
}

// ItemError describes one failed item inside a batch.
type ItemError struct {
	Index      int                   `json:"index"`
	InternalID InternalReservationID `json:"internal_id,omitempty"`
	ExternalID ExternalReservationID `json:"external_id,omitempty"`
	Kind       string                `json:"kind"`
	Message    string                `json:"message"`
}

// BatchResult reports the outcome of one outbound push batch. A partial
// failure never rolls back earlier successes; the per-item error list lets
// an operator re-drive only the failed subset.
type BatchResult struct {
	Kind              EntityKind    `json:"kind"`
	RecordsProcessed  int           `json:"records_processed"`
	RecordsSuccessful int           `json:"records_successful"`
	RecordsFailed     int           `json:"records_failed"`
	Errors            []ItemError   `json:"errors,omitempty"`
	Cancelled         bool          `json:"cancelled,omitempty"`
	Duration          time.Duration `json:"duration"`
}
