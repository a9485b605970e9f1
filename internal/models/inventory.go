// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package models

import "time"

// AvailabilityUpdate is one outbound availability change for a room over a
// date range. Available=0 together with StopSale=true closes the room for
// sale on those dates.
type AvailabilityUpdate struct {
	RoomID    RoomID    `json:"room_id"`
	RoomType  RoomType  `json:"room_type"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Available int       `json:"available"`
	StopSale  bool      `json:"stop_sale"`
}

// RateUpdate is one outbound rate change for a room type and rate plan over
// a date range.
type RateUpdate struct {
	RoomType  RoomType     `json:"room_type"`
	RatePlan  RatePlanCode `json:"rate_plan"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Amount    float64      `json:"amount"`
	Currency  string       `json:"currency"`
	MinStay   int          `json:"min_stay,omitempty"`
	MaxStay   int          `json:"max_stay,omitempty"`
}
