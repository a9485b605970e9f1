// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
mapper.go - Bidirectional Data Mapping

Translates between internal snapshots and the flat wire shape the
protocol adapter exchanges. Mapping never panics and never partially
succeeds silently: a Result carries either mapped data or the errors
that aborted the mapping, plus warnings for every lossy or approximated
translation (unknown codes, merged statuses, tax splits).
*/

package mapper

import (
	"fmt"
	"math"
	"time"

	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
)

// Result is the outcome of one mapping. Errors abort the mapping and
// leave Data zero; warnings accompany successfully mapped data.
type Result[T any] struct {
	Success  bool     `json:"success"`
	Data     T        `json:"data,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func failure[T any](errs ...string) Result[T] {
	return Result[T]{Success: false, Errors: errs}
}

// Config tunes the mapper's financial and seasonal tables.
type Config struct {
	// Commissions maps channel codes to commission rates (0..1). Channels
	// absent from the map fall back to DefaultCommissionRates, then to
	// DefaultCommission.
	Commissions map[models.ChannelCode]float64

	// DefaultCommission applies to channels with no table entry.
	DefaultCommission float64

	// SeasonFactors multiplies outbound rates per season. Defaults to
	// DefaultSeasonFactors.
	SeasonFactors map[Season]float64

	// TaxRate is the VAT rate used to approximate the tax split on
	// channel totals that arrive without a breakdown. Default: 0.13.
	TaxRate float64
}

// Mapper translates reservations, availability and rates between the
// internal model and the wire shape. Safe for concurrent use.
type Mapper struct {
	commissions       map[models.ChannelCode]float64
	defaultCommission float64
	seasonFactors     map[Season]float64
	taxRate           float64
}

// New creates a mapper, filling unset config with the default tables.
func New(cfg Config) *Mapper {
	m := &Mapper{
		commissions:       cfg.Commissions,
		defaultCommission: cfg.DefaultCommission,
		seasonFactors:     cfg.SeasonFactors,
		taxRate:           cfg.TaxRate,
	}
	if m.commissions == nil {
		m.commissions = DefaultCommissionRates
	}
	if m.seasonFactors == nil {
		m.seasonFactors = DefaultSeasonFactors
	}
	if m.taxRate <= 0 {
		m.taxRate = 0.13
	}
	return m
}

// round2 rounds to cents. All derived amounts pass through here so the
// same total always yields the same breakdown.
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// CommissionRate returns the rate for a channel, falling back to the
// default table and then the default rate.
func (m *Mapper) CommissionRate(channel models.ChannelCode) float64 {
	if rate, ok := m.commissions[channel]; ok {
		return rate
	}
	if rate, ok := DefaultCommissionRates[channel]; ok {
		return rate
	}
	return m.defaultCommission
}

// ToExternal maps an internal reservation to the wire shape. Validation
// failures abort; unmappable codes fall back with a warning.
func (m *Mapper) ToExternal(r *models.Reservation) Result[phobs.ReservationData] {
	if err := r.Validate(); err != nil {
		return failure[phobs.ReservationData](err.Error())
	}

	var warnings []string

	roomCode, known := RoomCodeFor(r.RoomType)
	if !known {
		warnings = append(warnings, fmt.Sprintf(
			"room type %q has no wire code, using fallback %s", r.RoomType, roomCode))
	}
	statusCode, known := StatusCodeFor(r.Status)
	if !known {
		warnings = append(warnings, fmt.Sprintf(
			"status %q has no wire code, sending %s", r.Status, statusCode))
	}
	if r.Status == models.StatusRoomClosure {
		warnings = append(warnings,
			"room closure is sent as cancellation "+WireCancelled+"; the channel manager has no closure concept")
	}

	var paymentCode string
	if r.Payment != "" {
		var ok bool
		paymentCode, ok = PaymentCodeFor(r.Payment)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("payment method %q has no wire code, omitted", r.Payment))
		}
	}

	data := phobs.ReservationData{
		ExternalID:      r.ExternalID.String(),
		Channel:         r.Channel.String(),
		Status:          statusCode,
		RoomTypeCode:    roomCode,
		RoomID:          r.RoomID.String(),
		RatePlanCode:    r.RatePlan.String(),
		CheckIn:         r.CheckIn.Format(phobs.WireDateFormat),
		CheckOut:        r.CheckOut.Format(phobs.WireDateFormat),
		GuestFirstName:  r.Guest.FirstName,
		GuestLastName:   r.Guest.LastName,
		GuestEmail:      r.Guest.Email,
		GuestPhone:      r.Guest.Phone,
		GuestCountry:    r.Guest.Country,
		Adults:          r.Adults,
		Children:        r.Children,
		TotalAmount:     round2(r.Money.TotalAmount),
		Currency:        r.Money.Currency,
		PaymentCode:     paymentCode,
		BookingRef:      r.BookingRef,
		SpecialRequests: r.SpecialRequests,
	}
	if !r.BookedAt.IsZero() {
		data.BookedAt = r.BookedAt.UTC().Format(time.RFC3339)
	}

	return Result[phobs.ReservationData]{Success: true, Data: data, Warnings: warnings}
}

// ToInternal maps a pulled wire reservation to an internal snapshot,
// deriving the financial breakdown from the channel commission table.
// Unparseable dates or an invalid resulting snapshot abort the mapping.
func (m *Mapper) ToInternal(d phobs.ReservationData) Result[models.Reservation] {
	var errs, warnings []string

	checkIn, err := time.Parse(phobs.WireDateFormat, d.CheckIn)
	if err != nil {
		errs = append(errs, fmt.Sprintf("unparseable check-in date %q", d.CheckIn))
	}
	checkOut, err := time.Parse(phobs.WireDateFormat, d.CheckOut)
	if err != nil {
		errs = append(errs, fmt.Sprintf("unparseable check-out date %q", d.CheckOut))
	}
	if len(errs) > 0 {
		return failure[models.Reservation](errs...)
	}

	roomType, known := RoomTypeFor(d.RoomTypeCode)
	if !known {
		warnings = append(warnings, fmt.Sprintf(
			"room code %q not in table, mapped to %s", d.RoomTypeCode, roomType))
	}

	status, known := StatusFor(d.Status)
	if !known {
		warnings = append(warnings, fmt.Sprintf(
			"wire status %q not in table, mapped to %s", d.Status, status))
	} else if status == models.StatusCancelled {
		warnings = append(warnings,
			"wire status "+WireCancelled+" covers both cancellation and room closure; mapped to cancellation")
	}

	var payment models.PaymentMethod
	if d.PaymentCode != "" {
		payment, known = PaymentMethodFor(d.PaymentCode)
		if !known {
			warnings = append(warnings, fmt.Sprintf(
				"payment code %q not in table, mapped to %s", d.PaymentCode, payment))
		}
	} else {
		payment = models.PaymentChannelCollect
	}

	channel := models.ChannelCode(d.Channel)
	rate := m.CommissionRate(channel)
	total := round2(d.TotalAmount)
	commission := round2(total * rate)
	taxes := round2(total - total/(1+m.taxRate))
	warnings = append(warnings, fmt.Sprintf(
		"tax breakdown approximated at %.0f%% VAT; channel total carries no split", m.taxRate*100))

	var bookedAt time.Time
	if d.BookedAt != "" {
		bookedAt, err = time.Parse(time.RFC3339, d.BookedAt)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("unparseable booking timestamp %q, left unset", d.BookedAt))
		}
	}

	res := models.Reservation{
		ExternalID: models.ExternalReservationID(d.ExternalID),
		RoomID:     models.RoomID(d.RoomID),
		RoomType:   roomType,
		RatePlan:   models.RatePlanCode(d.RatePlanCode),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guest: models.Guest{
			FirstName: d.GuestFirstName,
			LastName:  d.GuestLastName,
			Email:     d.GuestEmail,
			Phone:     d.GuestPhone,
			Country:   d.GuestCountry,
		},
		Adults:   d.Adults,
		Children: d.Children,
		Money: models.Money{
			RoomRate:    round2(total - taxes),
			Taxes:       taxes,
			Commission:  commission,
			NetAmount:   round2(total - commission),
			TotalAmount: total,
			Currency:    d.Currency,
		},
		Payment:         payment,
		Status:          status,
		Channel:         channel,
		BookingRef:      d.BookingRef,
		SpecialRequests: d.SpecialRequests,
		BookedAt:        bookedAt,
		ModifiedAt:      time.Now().UTC(),
	}

	if err := res.Validate(); err != nil {
		return failure[models.Reservation](err.Error())
	}
	return Result[models.Reservation]{Success: true, Data: res, Warnings: warnings}
}

// MapAvailability maps outbound availability updates to wire parameters.
func (m *Mapper) MapAvailability(updates []models.AvailabilityUpdate) Result[[]phobs.AvailabilityParams] {
	var warnings []string
	params := make([]phobs.AvailabilityParams, 0, len(updates))
	for i, u := range updates {
		if !u.StartDate.Before(u.EndDate) && !u.StartDate.Equal(u.EndDate) {
			return failure[[]phobs.AvailabilityParams](fmt.Sprintf(
				"update %d: start date %s after end date %s",
				i, u.StartDate.Format(phobs.WireDateFormat), u.EndDate.Format(phobs.WireDateFormat)))
		}
		if u.Available < 0 {
			return failure[[]phobs.AvailabilityParams](fmt.Sprintf(
				"update %d: negative availability %d", i, u.Available))
		}
		code, known := RoomCodeFor(u.RoomType)
		if !known {
			warnings = append(warnings, fmt.Sprintf(
				"update %d: room type %q has no wire code, using fallback %s", i, u.RoomType, code))
		}
		params = append(params, phobs.AvailabilityParams{
			RoomTypeCode: code,
			Start:        u.StartDate,
			End:          u.EndDate,
			Available:    u.Available,
			StopSale:     u.StopSale,
		})
	}
	return Result[[]phobs.AvailabilityParams]{Success: true, Data: params, Warnings: warnings}
}

// MapRates maps outbound rate updates to wire parameters, applying the
// seasonal factor for the season each update starts in.
func (m *Mapper) MapRates(updates []models.RateUpdate) Result[[]phobs.RateParams] {
	var warnings []string
	params := make([]phobs.RateParams, 0, len(updates))
	for i, u := range updates {
		if u.Amount < 0 {
			return failure[[]phobs.RateParams](fmt.Sprintf("update %d: negative rate %.2f", i, u.Amount))
		}
		code, known := RoomCodeFor(u.RoomType)
		if !known {
			warnings = append(warnings, fmt.Sprintf(
				"update %d: room type %q has no wire code, using fallback %s", i, u.RoomType, code))
		}

		season := SeasonFor(u.StartDate)
		factor, ok := m.seasonFactors[season]
		if !ok {
			factor = 1
		}
		amount := round2(u.Amount * factor)
		if factor != 1 {
			warnings = append(warnings, fmt.Sprintf(
				"update %d: %s season factor %.2f adjusted rate %.2f to %.2f",
				i, season, factor, u.Amount, amount))
		}

		params = append(params, phobs.RateParams{
			RoomTypeCode: code,
			RatePlanCode: u.RatePlan.String(),
			Start:        u.StartDate,
			End:          u.EndDate,
			Amount:       amount,
			Currency:     u.Currency,
			MinStay:      u.MinStay,
			MaxStay:      u.MaxStay,
		})
	}
	return Result[[]phobs.RateParams]{Success: true, Data: params, Warnings: warnings}
}
