// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package phobs

import (
	"strings"
	"testing"
)

func wrapBody(inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>` + inner + `</soap:Body>
</soap:Envelope>`)
}

func TestParseResponseFaultShortCircuits(t *testing.T) {
	raw := wrapBody(`
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Internal error</faultstring>
      <detail>database unavailable</detail>
    </soap:Fault>
    <OTA_HotelAvailNotifRS EchoToken="t1"><Success/></OTA_HotelAvailNotifRS>`)

	result := ParseResponse(raw)
	if result.Success {
		t.Fatal("fault response must not be successful")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	e := result.Errors[0]
	if e.Type != ErrTypeFault {
		t.Errorf("error type = %q, want %q", e.Type, ErrTypeFault)
	}
	if !strings.Contains(e.Message, "Internal error") {
		t.Errorf("fault message %q missing faultstring", e.Message)
	}
}

func TestParseResponseMalformedNeverEscapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty body", "", ErrTypeNoResponse},
		{"whitespace", "   \n\t", ErrTypeNoResponse},
		{"not xml", "this is not xml at all", ErrTypeParse},
		{"truncated envelope", `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><OTA_Hotel`, ErrTypeParse},
		{"wrong root", `<html><body>502 Bad Gateway</body></html>`, ErrTypeParse},
		{"empty soap body", string(wrapBody(``)), ErrTypeNoResponse},
		{"unrecognized payload", string(wrapBody(`<SomethingElse attr="1"/>`)), ErrTypeNoResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseResponse([]byte(tt.raw))
			if result.Success {
				t.Fatal("malformed input must not parse as success")
			}
			if len(result.Errors) == 0 {
				t.Fatal("expected at least one error")
			}
			if result.Errors[0].Type != tt.want {
				t.Errorf("error type = %q, want %q", result.Errors[0].Type, tt.want)
			}
		})
	}
}

func TestParseResponseErrorNormalization(t *testing.T) {
	// One error uses the ShortText attribute, the other carries the
	// message as element text. Both must normalize to the same shape.
	raw := wrapBody(`
    <OTA_HotelAvailNotifRS EchoToken="t2">
      <Errors>
        <Error Type="3" Code="402" ShortText="Invalid rate plan" RecordID="RP-9"/>
        <Error Type="1" Code="450">Room type not mapped</Error>
      </Errors>
      <Warnings>
        <Warning Type="10" ShortText="Date range truncated"/>
      </Warnings>
    </OTA_HotelAvailNotifRS>`)

	result := ParseResponse(raw)
	if result.Success {
		t.Fatal("error-only response must not be successful")
	}
	if result.ResponseType != "OTA_HotelAvailNotifRS" {
		t.Errorf("response type = %q", result.ResponseType)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(result.Errors))
	}
	if got := result.Errors[0]; got.Message != "Invalid rate plan" || got.RecordID != "RP-9" {
		t.Errorf("attribute-form error normalized wrong: %+v", got)
	}
	if got := result.Errors[1]; got.Message != "Room type not mapped" || got.Code != "450" {
		t.Errorf("text-form error normalized wrong: %+v", got)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Message != "Date range truncated" {
		t.Errorf("warnings normalized wrong: %+v", result.Warnings)
	}
}

func TestParseResponseSuccessWithWarnings(t *testing.T) {
	raw := wrapBody(`
    <OTA_HotelRateAmountNotifRS EchoToken="t3">
      <Success/>
      <Warnings><Warning Type="10" ShortText="Rate rounded"/></Warnings>
    </OTA_HotelRateAmountNotifRS>`)

	result := ParseResponse(raw)
	if !result.Success {
		t.Fatal("explicit Success marker must yield a successful result")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings must survive on success, got %d", len(result.Warnings))
	}
}

func TestParseResponsePriorityOverGeneric(t *testing.T) {
	// A known type and an unknown OTA_*RS side by side: the known type
	// must win regardless of document order.
	raw := wrapBody(`
    <OTA_HotelSomethingRS EchoToken="x"><Success/></OTA_HotelSomethingRS>
    <OTA_NotifReportRS EchoToken="t4"><Success/></OTA_NotifReportRS>`)

	result := ParseResponse(raw)
	if result.ResponseType != "OTA_NotifReportRS" {
		t.Errorf("response type = %q, want OTA_NotifReportRS", result.ResponseType)
	}
}

func TestParseResponseGenericFallback(t *testing.T) {
	raw := wrapBody(`
    <OTA_HotelDescriptiveInfoRS EchoToken="t5">
      <Errors><Error Code="500" ShortText="not supported"/></Errors>
    </OTA_HotelDescriptiveInfoRS>`)

	result := ParseResponse(raw)
	if result.ResponseType != "OTA_HotelDescriptiveInfoRS" {
		t.Errorf("response type = %q", result.ResponseType)
	}
	if result.Success || len(result.Errors) != 1 {
		t.Errorf("generic fallback lost status sections: %+v", result)
	}
}

func TestParseResponsePullFlattening(t *testing.T) {
	raw := wrapBody(`
    <OTA_ResRetrieveRS EchoToken="t6">
      <Success/>
      <ReservationsList>
        <HotelReservation CreateDateTime="2026-08-20T14:05:00Z" ResStatus="CONF">
          <UniqueID Type="14" ID="BDC-881234"/>
          <UniqueID Type="16" ID="REF-42"/>
          <RoomStays>
            <RoomStay SourceOfBusiness="BDC">
              <RoomTypes><RoomType RoomTypeCode="DBL" RoomID="204"/></RoomTypes>
              <RatePlans><RatePlan RatePlanCode="BAR"/></RatePlans>
              <GuestCounts>
                <GuestCount AgeQualifyingCode="10" Count="2"/>
                <GuestCount AgeQualifyingCode="8" Count="1"/>
              </GuestCounts>
              <TimeSpan Start="2026-09-10" End="2026-09-14"/>
              <Total AmountAfterTax="612.50" CurrencyCode="EUR"/>
            </RoomStay>
          </RoomStays>
          <ResGuests>
            <ResGuest PrimaryIndicator="true">
              <Profiles><ProfileInfo><Profile>
                <Customer>
                  <PersonName><GivenName>Ivana</GivenName><Surname>Horvat</Surname></PersonName>
                  <Telephone PhoneNumber="+385911234567"/>
                  <Email>ivana@example.com</Email>
                  <Address><CountryName>HR</CountryName></Address>
                </Customer>
              </Profile></ProfileInfo></Profiles>
            </ResGuest>
          </ResGuests>
          <ResGlobalInfo>
            <HotelReservationIDs>
              <HotelReservationID ResID_Type="StatusCode" ResID_Value="CONF"/>
            </HotelReservationIDs>
            <GuaranteePaymentCode>CC</GuaranteePaymentCode>
            <SpecialRequests><SpecialRequest>Late arrival</SpecialRequest></SpecialRequests>
            <SourceChannel>booking_com</SourceChannel>
          </ResGlobalInfo>
        </HotelReservation>
      </ReservationsList>
    </OTA_ResRetrieveRS>`)

	result := ParseResponse(raw)
	if !result.Success {
		t.Fatalf("pull parse failed: %+v", result.Errors)
	}
	if len(result.Reservations) != 1 {
		t.Fatalf("expected 1 reservation, got %d", len(result.Reservations))
	}

	r := result.Reservations[0]
	if r.ExternalID != "BDC-881234" {
		t.Errorf("ExternalID = %q", r.ExternalID)
	}
	if r.BookingRef != "REF-42" {
		t.Errorf("BookingRef = %q", r.BookingRef)
	}
	if r.RoomTypeCode != "DBL" || r.RoomID != "204" || r.RatePlanCode != "BAR" {
		t.Errorf("room stay fields: %q %q %q", r.RoomTypeCode, r.RoomID, r.RatePlanCode)
	}
	if r.Adults != 2 || r.Children != 1 {
		t.Errorf("guest counts = %d adults, %d children", r.Adults, r.Children)
	}
	if r.CheckIn != "2026-09-10" || r.CheckOut != "2026-09-14" {
		t.Errorf("stay dates = %q..%q", r.CheckIn, r.CheckOut)
	}
	if r.TotalAmount != 612.50 || r.Currency != "EUR" {
		t.Errorf("total = %v %q", r.TotalAmount, r.Currency)
	}
	if r.GuestFirstName != "Ivana" || r.GuestLastName != "Horvat" {
		t.Errorf("guest name = %q %q", r.GuestFirstName, r.GuestLastName)
	}
	if r.GuestPhone != "+385911234567" || r.GuestEmail != "ivana@example.com" || r.GuestCountry != "HR" {
		t.Errorf("guest contact: %q %q %q", r.GuestPhone, r.GuestEmail, r.GuestCountry)
	}
	if r.Channel != "booking_com" {
		t.Errorf("Channel = %q, want SourceChannel to win over SourceOfBusiness", r.Channel)
	}
	if r.PaymentCode != "CC" || r.SpecialRequests != "Late arrival" {
		t.Errorf("global info: %q %q", r.PaymentCode, r.SpecialRequests)
	}
	if r.Status != "CONF" {
		t.Errorf("Status = %q", r.Status)
	}
}

func TestParseResponseEmptyPullIsValid(t *testing.T) {
	raw := wrapBody(`
    <OTA_ResRetrieveRS EchoToken="t7">
      <Success/>
      <ReservationsList/>
    </OTA_ResRetrieveRS>`)

	result := ParseResponse(raw)
	if !result.Success {
		t.Fatal("empty pull must be a valid success")
	}
	if len(result.Reservations) != 0 {
		t.Fatalf("expected 0 reservations, got %d", len(result.Reservations))
	}
}

func TestParseResponseRatePlans(t *testing.T) {
	raw := wrapBody(`
    <OTA_HotelRatePlanRS EchoToken="t8">
      <Success/>
      <RatePlans>
        <RatePlan RatePlanCode="BAR"><Description><Text>Best available rate</Text></Description></RatePlan>
        <RatePlan RatePlanCode="NRF"/>
      </RatePlans>
    </OTA_HotelRatePlanRS>`)

	result := ParseResponse(raw)
	if !result.Success {
		t.Fatalf("rate plan parse failed: %+v", result.Errors)
	}
	if len(result.RatePlans) != 2 {
		t.Fatalf("expected 2 rate plans, got %d", len(result.RatePlans))
	}
	if result.RatePlans[0].Code != "BAR" || result.RatePlans[0].Description != "Best available rate" {
		t.Errorf("rate plan 0: %+v", result.RatePlans[0])
	}
}
