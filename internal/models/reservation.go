// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ReservationStatus is the internal reservation lifecycle state.
type ReservationStatus string

const (
	StatusPending    ReservationStatus = "pending"
	StatusConfirmed  ReservationStatus = "confirmed"
	StatusCheckedIn  ReservationStatus = "checked_in"
	StatusCheckedOut ReservationStatus = "checked_out"
	StatusCancelled  ReservationStatus = "cancelled"
	StatusNoShow     ReservationStatus = "no_show"
	// StatusRoomClosure marks a blocking pseudo-reservation used to close a
	// room for maintenance. On the wire it is currently merged with
	// cancellation; see the status table in internal/mapper.
	StatusRoomClosure ReservationStatus = "room_closure"
)

// RoomType is the internal room category.
type RoomType string

const (
	RoomTypeStandard  RoomType = "standard"
	RoomTypeDouble    RoomType = "double"
	RoomTypeTwin      RoomType = "twin"
	RoomTypeFamily    RoomType = "family"
	RoomTypeSuite     RoomType = "suite"
	RoomTypeApartment RoomType = "apartment"
)

// PaymentMethod is the internal payment method.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCash           PaymentMethod = "cash"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentChannelCollect PaymentMethod = "channel_collect"
)

// Guest holds the guest details carried on a reservation snapshot.
type Guest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country,omitempty"`
}

// FullName returns "First Last" for logging and operator-facing messages.
func (g Guest) FullName() string {
	return fmt.Sprintf("%s %s", g.FirstName, g.LastName)
}

// Money is the monetary breakdown of a reservation. All amounts are in the
// property currency; Commission and NetAmount are derived by the mapper
// from the channel commission table.
type Money struct {
	RoomRate    float64 `json:"room_rate"`
	Taxes       float64 `json:"taxes"`
	Fees        float64 `json:"fees"`
	Commission  float64 `json:"commission"`
	NetAmount   float64 `json:"net_amount"`
	TotalAmount float64 `json:"total_amount" validate:"gte=0"`
	Currency    string  `json:"currency"`
}

// Reservation is the internal reservation snapshot exchanged with the
// channel manager.
//
// Invariants: CheckIn < CheckOut, Adults >= 1, Money.TotalAmount >= 0 and
// 0 <= Money.Commission <= Money.TotalAmount. Validate() enforces them;
// the mapper refuses to map a snapshot that fails validation.
type Reservation struct {
	ID         InternalReservationID `json:"id"`
	ExternalID ExternalReservationID `json:"external_id,omitempty"`
	RoomID     RoomID                `json:"room_id" validate:"required"`
	RoomType   RoomType              `json:"room_type"`
	RatePlan   RatePlanCode          `json:"rate_plan,omitempty"`

	CheckIn  time.Time `json:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" validate:"required"`

	Guest    Guest `json:"guest"`
	Adults   int   `json:"adults" validate:"gte=1"`
	Children int   `json:"children" validate:"gte=0"`

	Money   Money             `json:"money"`
	Payment PaymentMethod     `json:"payment,omitempty"`
	Status  ReservationStatus `json:"status"`

	// Channel is zero for reservations created internally (walk-in, phone).
	Channel         ChannelCode `json:"channel,omitempty"`
	BookingRef      string      `json:"booking_ref,omitempty"`
	SpecialRequests string      `json:"special_requests,omitempty"`

	BookedAt   time.Time `json:"booked_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Nights returns the length of stay in nights.
func (r *Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// NumberOfGuests returns the total guest count.
func (r *Reservation) NumberOfGuests() int {
	return r.Adults + r.Children
}

// Overlaps reports whether two stays on the same room share at least one
// night. Check-out day equals check-in day of the next stay without
// overlapping (hotel day-use semantics).
func (r *Reservation) Overlaps(other *Reservation) bool {
	if r.RoomID != other.RoomID {
		return false
	}
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// snapshotValidate runs the struct tag constraints on snapshots.
var snapshotValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the snapshot invariants that must hold before any mapping
// or sync attempt: the struct tag constraints first, then the cross-field
// rules the tags cannot express.
func (r *Reservation) Validate() error {
	if err := snapshotValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("reservation %s: %s failed %q constraint", r.ID, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	if !r.CheckIn.Before(r.CheckOut) {
		return fmt.Errorf("reservation %s: check-in %s must precede check-out %s",
			r.ID, r.CheckIn.Format("2006-01-02"), r.CheckOut.Format("2006-01-02"))
	}
	if r.Money.Commission < 0 || r.Money.Commission > r.Money.TotalAmount {
		return fmt.Errorf("reservation %s: commission %.2f outside [0, %.2f]",
			r.ID, r.Money.Commission, r.Money.TotalAmount)
	}
	return nil
}
