// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package phobs

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WireDateFormat is the date layout used on every wire date range.
const WireDateFormat = "2006-01-02"

// ReservationData is the flat wire-side reservation shape. The builder
// consumes it for outbound notifications and the parser produces it when
// flattening a reservation pull, so the mapper sees one shape in both
// directions.
type ReservationData struct {
	ExternalID      string  `json:"external_id"`
	Channel         string  `json:"channel,omitempty"`
	Status          string  `json:"status"` // wire status code, see mapper code tables
	RoomTypeCode    string  `json:"room_type_code"`
	RoomID          string  `json:"room_id,omitempty"`
	RatePlanCode    string  `json:"rate_plan_code,omitempty"`
	CheckIn         string  `json:"check_in"`  // YYYY-MM-DD
	CheckOut        string  `json:"check_out"` // YYYY-MM-DD
	GuestFirstName  string  `json:"guest_first_name"`
	GuestLastName   string  `json:"guest_last_name"`
	GuestEmail      string  `json:"guest_email,omitempty"`
	GuestPhone      string  `json:"guest_phone,omitempty"`
	GuestCountry    string  `json:"guest_country,omitempty"`
	Adults          int     `json:"adults"`
	Children        int     `json:"children,omitempty"`
	TotalAmount     float64 `json:"total_amount"`
	Currency        string  `json:"currency,omitempty"`
	PaymentCode     string  `json:"payment_code,omitempty"`
	BookingRef      string  `json:"booking_ref,omitempty"`
	SpecialRequests string  `json:"special_requests,omitempty"`
	BookedAt        string  `json:"booked_at,omitempty"` // RFC 3339, may be empty on pull
}

// AvailabilityParams are the typed inputs for one availability message.
type AvailabilityParams struct {
	RoomTypeCode string
	RatePlanCode string
	Start        time.Time
	End          time.Time
	Available    int
	StopSale     bool
}

// RateParams are the typed inputs for one rate-amount message.
type RateParams struct {
	RoomTypeCode string
	RatePlanCode string
	Start        time.Time
	End          time.Time
	Amount       float64
	Currency     string
	Adults       int
	MinStay      int
	MaxStay      int
}

// RequestBuilder builds outbound wire requests scoped to one hotel code.
// Builders are pure functions of their parameters; no network I/O happens
// here.
type RequestBuilder struct {
	hotelCode string
}

// NewRequestBuilder creates a builder for the given hotel code.
func NewRequestBuilder(hotelCode string) *RequestBuilder {
	return &RequestBuilder{hotelCode: hotelCode}
}

func (b *RequestBuilder) envelope(kind RequestKind, action string, payload any) (*WireRequest, error) {
	env := outboundEnvelope{SoapNS: soapNS}
	env.Body.Payload = payload

	body, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	return &WireRequest{
		Kind:       kind,
		SOAPAction: action,
		Body:       append([]byte(xml.Header), body...),
	}, nil
}

func echoToken() string { return uuid.NewString() }

// BuildAvailabilityUpdate builds an OTA_HotelAvailNotifRQ. A StopSale
// update carries RestrictionStatus Close so the room is closed for sale on
// the covered dates regardless of the booking limit.
func (b *RequestBuilder) BuildAvailabilityUpdate(updates []AvailabilityParams) (*WireRequest, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("build availability update: no updates given")
	}

	msg := availStatusMessages{NS: otaNS, EchoToken: echoToken()}
	msg.Messages.HotelCode = b.hotelCode
	for _, u := range updates {
		status := "Open"
		if u.StopSale {
			status = "Close"
		}
		msg.Messages.Items = append(msg.Messages.Items, availStatusMessage{
			BookingLimit: u.Available,
			Control: statusAppControl{
				Start:        u.Start.Format(WireDateFormat),
				End:          u.End.Format(WireDateFormat),
				RoomTypeCode: u.RoomTypeCode,
				RatePlanCode: u.RatePlanCode,
			},
			Restriction: &restriction{Status: status},
		})
	}
	return b.envelope(KindAvailabilityUpdate, "HotelAvailNotif", msg)
}

// BuildRateUpdate builds an OTA_HotelRateAmountNotifRQ.
func (b *RequestBuilder) BuildRateUpdate(updates []RateParams) (*WireRequest, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("build rate update: no updates given")
	}

	msg := rateAmountMessages{NS: otaNS, EchoToken: echoToken()}
	msg.Messages.HotelCode = b.hotelCode
	for _, u := range updates {
		adults := u.Adults
		if adults == 0 {
			adults = 2 // standard double occupancy base rate
		}
		var rate rateElement
		rate.MinStay = u.MinStay
		rate.MaxStay = u.MaxStay
		rate.Amounts.Items = append(rate.Amounts.Items, baseGuestAmount{
			AmountAfterTax:    u.Amount,
			CurrencyCode:      u.Currency,
			AgeQualifyingCode: AgeCodeAdult,
			NumberOfGuests:    adults,
		})

		var m rateAmountMessage
		m.Control = statusAppControl{
			Start:        u.Start.Format(WireDateFormat),
			End:          u.End.Format(WireDateFormat),
			RoomTypeCode: u.RoomTypeCode,
			RatePlanCode: u.RatePlanCode,
		}
		m.Rates.Rate = append(m.Rates.Rate, rate)
		msg.Messages.Items = append(msg.Messages.Items, m)
	}
	return b.envelope(KindRateUpdate, "HotelRateAmountNotif", msg)
}

// resStatusFor maps a request kind to the OTA ResStatus attribute.
func resStatusFor(kind RequestKind) string {
	switch kind {
	case KindReservationModify:
		return "Modify"
	case KindReservationCancel:
		return "Cancel"
	default:
		return "Commit"
	}
}

// BuildReservationNotif builds an OTA_HotelResNotifRQ for a create, modify
// or cancel, depending on kind.
func (b *RequestBuilder) BuildReservationNotif(kind RequestKind, data ReservationData) (*WireRequest, error) {
	switch kind {
	case KindReservationCreate, KindReservationModify, KindReservationCancel:
	default:
		return nil, fmt.Errorf("build reservation notif: kind %q is not a reservation kind", kind)
	}

	msg := resNotifRQ{NS: otaNS, EchoToken: echoToken(), ResStatus: resStatusFor(kind)}

	var res hotelReservation
	res.ResStatus = resStatusFor(kind)
	res.CreateDateTime = data.BookedAt
	if data.ExternalID != "" {
		res.UniqueIDs = append(res.UniqueIDs, uniqueID{Type: "14", ID: data.ExternalID})
	}
	if data.BookingRef != "" {
		res.UniqueIDs = append(res.UniqueIDs, uniqueID{Type: "16", ID: data.BookingRef})
	}

	var stay roomStay
	stay.SourceCode = data.Channel
	stay.RoomTypes.Items = append(stay.RoomTypes.Items, roomTypeElement{
		RoomTypeCode: data.RoomTypeCode,
		RoomID:       data.RoomID,
	})
	if data.RatePlanCode != "" {
		stay.RatePlans.Items = append(stay.RatePlans.Items, ratePlanElement{RatePlanCode: data.RatePlanCode})
	}
	stay.GuestCounts.Items = append(stay.GuestCounts.Items,
		guestCount{AgeQualifyingCode: AgeCodeAdult, Count: data.Adults})
	if data.Children > 0 {
		stay.GuestCounts.Items = append(stay.GuestCounts.Items,
			guestCount{AgeQualifyingCode: AgeCodeChild, Count: data.Children})
	}
	stay.TimeSpan = stayTimeSpan{Start: data.CheckIn, End: data.CheckOut}
	stay.Total = &stayTotal{AmountAfterTax: data.TotalAmount, CurrencyCode: data.Currency}
	res.RoomStays.Items = append(res.RoomStays.Items, stay)

	var guest resGuest
	guest.Primary = true
	guest.Profile.PersonName = personName{GivenName: data.GuestFirstName, Surname: data.GuestLastName}
	guest.Profile.Email = data.GuestEmail
	if data.GuestPhone != "" {
		guest.Profile.Telephone = &telephone{PhoneNumber: data.GuestPhone}
	}
	guest.Profile.Country = data.GuestCountry
	res.ResGuests.Items = append(res.ResGuests.Items, guest)

	info := &resGlobalInfo{PaymentCode: data.PaymentCode, SourceChannel: data.Channel}
	if data.Status != "" {
		info.ReservationIDs.Items = append(info.ReservationIDs.Items,
			hotelReservationID{Type: "StatusCode", Value: data.Status})
	}
	if data.SpecialRequests != "" {
		info.SpecialRequests.Items = append(info.SpecialRequests.Items,
			specialRequest{Text: data.SpecialRequests})
	}
	res.GlobalInfo = info

	msg.Reservations.Items = append(msg.Reservations.Items, res)
	return b.envelope(kind, "HotelResNotif", msg)
}

// BuildRatePlanQuery builds an OTA_HotelRatePlanRQ for the given rate plan
// codes over an optional date range.
func (b *RequestBuilder) BuildRatePlanQuery(ratePlans []string, start, end time.Time) (*WireRequest, error) {
	msg := ratePlanRQ{NS: otaNS, EchoToken: echoToken()}
	msg.Candidates.HotelRef = hotelRef{HotelCode: b.hotelCode}
	for _, code := range ratePlans {
		msg.Candidates.RatePlans = append(msg.Candidates.RatePlans, ratePlanCandidate{RatePlanCode: code})
	}
	if !start.IsZero() || !end.IsZero() {
		dr := &dateRange{}
		if !start.IsZero() {
			dr.Start = start.Format(WireDateFormat)
		}
		if !end.IsZero() {
			dr.End = end.Format(WireDateFormat)
		}
		msg.Candidates.DateRange = dr
	}
	return b.envelope(KindRatePlanQuery, "HotelRatePlan", msg)
}

// BuildReservationPull builds an OTA_ReadRQ requesting all undelivered
// reservations for the hotel.
func (b *RequestBuilder) BuildReservationPull() (*WireRequest, error) {
	msg := readRQ{NS: otaNS, EchoToken: echoToken()}
	msg.Criteria.HotelRef = hotelRef{HotelCode: b.hotelCode}
	msg.Criteria.Selection = selectionCriteria{SelectionType: "Undelivered"}
	return b.envelope(KindReservationPull, "ReadRQ", msg)
}

// BuildReservationConfirm builds an OTA_NotifReportRQ acknowledging the
// given external reservation ids. Unacknowledged reservations are
// re-delivered by the channel on a future pull.
func (b *RequestBuilder) BuildReservationConfirm(externalIDs []string) (*WireRequest, error) {
	if len(externalIDs) == 0 {
		return nil, fmt.Errorf("build reservation confirm: no ids given")
	}
	msg := notifReportRQ{NS: otaNS, EchoToken: echoToken(), Success: &struct{}{}}
	for _, id := range externalIDs {
		msg.Details.Pending.Items = append(msg.Details.Pending.Items, uniqueID{Type: "14", ID: id})
	}
	return b.envelope(KindReservationConfirm, "NotifReport", msg)
}
