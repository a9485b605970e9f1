// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
codetables.go - Internal/Wire Code Tables

Static translation tables between the internal vocabulary and the codes
Phobs speaks. The tables are bidirectional where the mapping is
bijective; statuses are not, because cancellation and room closure are
deliberately merged on the wire (the channel manager has no closure
concept, and a closed room must stop selling exactly like a cancelled
stay frees one).
*/

package mapper

import "github.com/adriatichotels/channelbridge/internal/models"

// FallbackRoomCode is used when an internal room type has no table entry.
const FallbackRoomCode = "STD"

// roomCode pairs the wire code with the operator-facing display name.
type roomCode struct {
	Code    string
	Display string
}

var roomTypeCodes = map[models.RoomType]roomCode{
	models.RoomTypeStandard:  {"STD", "Standard Room"},
	models.RoomTypeDouble:    {"DBL", "Double Room"},
	models.RoomTypeTwin:      {"TWN", "Twin Room"},
	models.RoomTypeFamily:    {"FAM", "Family Room"},
	models.RoomTypeSuite:     {"STE", "Suite"},
	models.RoomTypeApartment: {"APT", "Apartment"},
}

var roomTypesByCode = func() map[string]models.RoomType {
	m := make(map[string]models.RoomType, len(roomTypeCodes))
	for rt, rc := range roomTypeCodes {
		m[rc.Code] = rt
	}
	return m
}()

// RoomCodeFor returns the wire code for an internal room type and whether
// the type had a table entry.
func RoomCodeFor(rt models.RoomType) (string, bool) {
	if rc, ok := roomTypeCodes[rt]; ok {
		return rc.Code, true
	}
	return FallbackRoomCode, false
}

// RoomTypeFor returns the internal room type for a wire code.
func RoomTypeFor(code string) (models.RoomType, bool) {
	rt, ok := roomTypesByCode[code]
	if !ok {
		return models.RoomTypeStandard, false
	}
	return rt, true
}

// RoomDisplayName returns the operator-facing name for a room type.
func RoomDisplayName(rt models.RoomType) string {
	if rc, ok := roomTypeCodes[rt]; ok {
		return rc.Display
	}
	return string(rt)
}

// WireCancelled is the merged wire status for cancellation and room
// closure. The reverse direction always reads it as a cancellation; the
// mapper attaches a warning so the ambiguity is visible downstream.
const WireCancelled = "CX"

var statusCodes = map[models.ReservationStatus]string{
	models.StatusPending:     "PEND",
	models.StatusConfirmed:   "CONF",
	models.StatusCheckedIn:   "INHOUSE",
	models.StatusCheckedOut:  "CO",
	models.StatusNoShow:      "NOSHOW",
	models.StatusCancelled:   WireCancelled,
	models.StatusRoomClosure: WireCancelled,
}

// statusesByCode additionally accepts the OTA transaction verbs that
// arrive on pulled reservations in place of a status code.
var statusesByCode = map[string]models.ReservationStatus{
	"PEND":    models.StatusPending,
	"CONF":    models.StatusConfirmed,
	"INHOUSE": models.StatusCheckedIn,
	"CO":      models.StatusCheckedOut,
	"NOSHOW":  models.StatusNoShow,
	"CX":      models.StatusCancelled,
	"New":     models.StatusConfirmed,
	"Commit":  models.StatusConfirmed,
	"Modify":  models.StatusConfirmed,
	"Cancel":  models.StatusCancelled,
}

// StatusCodeFor returns the wire status for an internal status.
func StatusCodeFor(s models.ReservationStatus) (string, bool) {
	code, ok := statusCodes[s]
	if !ok {
		return "PEND", false
	}
	return code, true
}

// StatusFor returns the internal status for a wire status or verb.
func StatusFor(code string) (models.ReservationStatus, bool) {
	s, ok := statusesByCode[code]
	if !ok {
		return models.StatusPending, false
	}
	return s, true
}

var paymentCodes = map[models.PaymentMethod]string{
	models.PaymentCard:           "CC",
	models.PaymentCash:           "CASH",
	models.PaymentBankTransfer:   "BT",
	models.PaymentChannelCollect: "CHANNEL",
}

var paymentsByCode = func() map[string]models.PaymentMethod {
	m := make(map[string]models.PaymentMethod, len(paymentCodes))
	for pm, code := range paymentCodes {
		m[code] = pm
	}
	return m
}()

// PaymentCodeFor returns the wire payment code for an internal method.
func PaymentCodeFor(pm models.PaymentMethod) (string, bool) {
	code, ok := paymentCodes[pm]
	return code, ok
}

// PaymentMethodFor returns the internal method for a wire payment code.
// Unknown codes default to channel collect, the safe assumption for OTA
// originated bookings.
func PaymentMethodFor(code string) (models.PaymentMethod, bool) {
	pm, ok := paymentsByCode[code]
	if !ok {
		return models.PaymentChannelCollect, false
	}
	return pm, true
}

// DefaultCommissionRates is the fallback commission table used when a
// channel has no configured rate.
var DefaultCommissionRates = map[models.ChannelCode]float64{
	"booking_com": 0.15,
	"expedia":     0.18,
	"airbnb":      0.14,
	"hotelbeds":   0.20,
	"direct":      0.0,
}
