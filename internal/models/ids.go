// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package models

// Identifier newtypes keep the internal and external id spaces distinct.
// A reservation id issued by the property management system and a booking
// reference issued by an OTA channel must never be compared or assigned
// across spaces; the compiler enforces that here.

// InternalReservationID identifies a reservation in the internal store.
type InternalReservationID string

// ExternalReservationID identifies a reservation on an OTA channel, as
// issued by the channel manager.
type ExternalReservationID string

// GuestID identifies a guest profile in the internal store.
type GuestID string

// RoomID identifies a physical room in the internal store.
type RoomID string

// RatePlanCode identifies a rate plan on the channel-manager side.
type RatePlanCode string

// ChannelCode identifies one OTA channel integration (e.g. "booking_com").
type ChannelCode string

func (id InternalReservationID) String() string { return string(id) }
func (id ExternalReservationID) String() string { return string(id) }
func (id GuestID) String() string               { return string(id) }
func (id RoomID) String() string                { return string(id) }
func (c RatePlanCode) String() string           { return string(c) }
func (c ChannelCode) String() string            { return string(c) }

// IsZero reports whether the id is unset. An internal reservation carries a
// zero external id until its first successful outbound sync; an inbound
// reservation carries a zero internal id until it is reconciled.
func (id InternalReservationID) IsZero() bool { return id == "" }

// IsZero reports whether the external id is unset.
func (id ExternalReservationID) IsZero() bool { return id == "" }
