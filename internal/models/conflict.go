// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package models

import (
	"time"

	"github.com/google/uuid"
)

// ConflictKind names a detected disagreement between the internal and
// external views of inventory or a reservation.
type ConflictKind string

const (
	ConflictDoubleBooking        ConflictKind = "double_booking"
	ConflictRateMismatch         ConflictKind = "rate_mismatch"
	ConflictAvailabilityMismatch ConflictKind = "availability_mismatch"
)

// ConflictSeverity grades operator urgency.
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "low"
	SeverityMedium   ConflictSeverity = "medium"
	SeverityHigh     ConflictSeverity = "high"
	SeverityCritical ConflictSeverity = "critical"
)

// ConflictStatus is the conflict lifecycle. Unresolved conflicts persist
// until explicitly closed; they are never silently dropped.
type ConflictStatus string

const (
	ConflictDetected  ConflictStatus = "detected"
	ConflictResolving ConflictStatus = "resolving"
	ConflictResolved  ConflictStatus = "resolved"
	ConflictEscalated ConflictStatus = "escalated"
)

// ConflictRecord captures one detected conflict. Created by the
// orchestrator's detection pass; resolved either automatically per the
// configured policy or by manual intervention through the API.
type ConflictRecord struct {
	ID               uuid.UUID        `json:"id"`
	Kind             ConflictKind     `json:"kind"`
	Severity         ConflictSeverity `json:"severity"`
	Channel          ChannelCode      `json:"channel,omitempty"`
	InternalData     *Reservation     `json:"internal_data,omitempty"`
	ExternalData     *Reservation     `json:"external_data,omitempty"`
	SuggestedAction  string           `json:"suggested_action,omitempty"`
	AutoResolvable   bool             `json:"auto_resolvable"`
	Status           ConflictStatus   `json:"status"`
	Resolution       string           `json:"resolution,omitempty"`
	DetectedAt       time.Time        `json:"detected_at"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	AffectedEntities []string         `json:"affected_entities,omitempty"`
}

// NewConflictRecord creates a conflict in the detected state.
func NewConflictRecord(kind ConflictKind, severity ConflictSeverity, channel ChannelCode) *ConflictRecord {
	return &ConflictRecord{
		ID:         uuid.New(),
		Kind:       kind,
		Severity:   severity,
		Channel:    channel,
		Status:     ConflictDetected,
		DetectedAt: time.Now().UTC(),
	}
}

// Active reports whether the conflict still needs attention.
func (c *ConflictRecord) Active() bool {
	return c.Status == ConflictDetected || c.Status == ConflictResolving || c.Status == ConflictEscalated
}
