// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
envelope.go - Phobs Wire Types

XML types for the SOAP envelopes exchanged with the Phobs channel manager.
The messages follow the OTA 2003/05 shapes Phobs speaks: availability and
rate notifications, reservation notifications, reservation retrieve
(pull), and notif-report (pull acknowledgement).

Only the canonical subset the adapter produces and consumes is modelled;
unknown elements in inbound payloads are ignored by encoding/xml.
*/

package phobs

import "encoding/xml"

const (
	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
	otaNS  = "http://www.opentravel.org/OTA/2003/05"

	// Age qualifying codes on GuestCount elements.
	AgeCodeAdult = 10
	AgeCodeChild = 8
)

// RequestKind names an outbound request type.
type RequestKind string

const (
	KindAvailabilityUpdate  RequestKind = "availability_update"
	KindRateUpdate          RequestKind = "rate_update"
	KindReservationCreate   RequestKind = "reservation_create"
	KindReservationModify   RequestKind = "reservation_modify"
	KindReservationCancel   RequestKind = "reservation_cancel"
	KindRatePlanQuery       RequestKind = "rate_plan_query"
	KindReservationPull     RequestKind = "reservation_pull"
	KindReservationConfirm  RequestKind = "reservation_confirm"
)

// WireRequest is a fully built outbound envelope ready for transport.
type WireRequest struct {
	Kind       RequestKind
	SOAPAction string
	Body       []byte
}

// outboundEnvelope wraps a single OTA message for marshalling.
type outboundEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Payload any
	} `xml:"soap:Body"`
}

// inboundEnvelope captures an inbound SOAP envelope. The body payload is
// kept raw; the parser decodes it once the response type is identified.
type inboundEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *soapFault `xml:"Fault"`
		Raw   []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

// soapFault is the standard SOAP fault section. Its presence
// short-circuits response parsing to a structured error list.
type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail string `xml:"detail"`
}

// wireErrorXML is one Error or Warning element. Phobs emits the message
// either as a ShortText attribute or as element text depending on the
// channel that originated it.
type wireErrorXML struct {
	Type      string `xml:"Type,attr"`
	Code      string `xml:"Code,attr"`
	ShortText string `xml:"ShortText,attr"`
	RecordID  string `xml:"RecordID,attr"`
	Text      string `xml:",chardata"`
}

// errorsBlock holds zero or more Error elements. A singular bare element
// and a repeated list both decode into the slice, which is how the
// heterogeneous shapes are normalized.
type errorsBlock struct {
	Errors []wireErrorXML `xml:"Error"`
}

type warningsBlock struct {
	Warnings []wireErrorXML `xml:"Warning"`
}

// responseCommon carries the status sections shared by every OTA response.
// Success responses may still carry Errors/Warnings blocks alongside
// business data; both are surfaced.
type responseCommon struct {
	EchoToken string         `xml:"EchoToken,attr"`
	Success   *struct{}      `xml:"Success"`
	Errors    *errorsBlock   `xml:"Errors"`
	Warnings  *warningsBlock `xml:"Warnings"`
}

// Outbound message bodies -------------------------------------------------

type availStatusMessages struct {
	XMLName   xml.Name `xml:"OTA_HotelAvailNotifRQ"`
	NS        string   `xml:"xmlns,attr"`
	EchoToken string   `xml:"EchoToken,attr"`
	Messages  struct {
		HotelCode string               `xml:"HotelCode,attr"`
		Items     []availStatusMessage `xml:"AvailStatusMessage"`
	} `xml:"AvailStatusMessages"`
}

type availStatusMessage struct {
	BookingLimit int              `xml:"BookingLimit,attr"`
	Control      statusAppControl `xml:"StatusApplicationControl"`
	Restriction  *restriction     `xml:"RestrictionStatus"`
}

type statusAppControl struct {
	Start        string `xml:"Start,attr"`
	End          string `xml:"End,attr"`
	RoomTypeCode string `xml:"InvTypeCode,attr"`
	RatePlanCode string `xml:"RatePlanCode,attr,omitempty"`
}

type restriction struct {
	Status string `xml:"Status,attr"` // Open | Close
}

type rateAmountMessages struct {
	XMLName   xml.Name `xml:"OTA_HotelRateAmountNotifRQ"`
	NS        string   `xml:"xmlns,attr"`
	EchoToken string   `xml:"EchoToken,attr"`
	Messages  struct {
		HotelCode string              `xml:"HotelCode,attr"`
		Items     []rateAmountMessage `xml:"RateAmountMessage"`
	} `xml:"RateAmountMessages"`
}

type rateAmountMessage struct {
	Control statusAppControl `xml:"StatusApplicationControl"`
	Rates   struct {
		Rate []rateElement `xml:"Rate"`
	} `xml:"Rates"`
}

type rateElement struct {
	MinStay int `xml:"MinLOS,attr,omitempty"`
	MaxStay int `xml:"MaxLOS,attr,omitempty"`
	Amounts struct {
		Items []baseGuestAmount `xml:"BaseByGuestAmt"`
	} `xml:"BaseByGuestAmts"`
}

type baseGuestAmount struct {
	AmountAfterTax    float64 `xml:"AmountAfterTax,attr"`
	CurrencyCode      string  `xml:"CurrencyCode,attr"`
	AgeQualifyingCode int     `xml:"AgeQualifyingCode,attr"`
	NumberOfGuests    int     `xml:"NumberOfGuests,attr"`
}

type resNotifRQ struct {
	XMLName      xml.Name `xml:"OTA_HotelResNotifRQ"`
	NS           string   `xml:"xmlns,attr"`
	EchoToken    string   `xml:"EchoToken,attr"`
	ResStatus    string   `xml:"ResStatus,attr"` // Commit | Modify | Cancel
	Reservations struct {
		Items []hotelReservation `xml:"HotelReservation"`
	} `xml:"HotelReservations"`
}

type hotelReservation struct {
	CreateDateTime string    `xml:"CreateDateTime,attr,omitempty"`
	ResStatus      string    `xml:"ResStatus,attr,omitempty"`
	UniqueIDs      []uniqueID `xml:"UniqueID"`
	RoomStays      struct {
		Items []roomStay `xml:"RoomStay"`
	} `xml:"RoomStays"`
	ResGuests struct {
		Items []resGuest `xml:"ResGuest"`
	} `xml:"ResGuests"`
	GlobalInfo *resGlobalInfo `xml:"ResGlobalInfo"`
}

type uniqueID struct {
	Type string `xml:"Type,attr"`
	ID   string `xml:"ID,attr"`
}

type roomStay struct {
	SourceCode string `xml:"SourceOfBusiness,attr,omitempty"`
	RoomTypes  struct {
		Items []roomTypeElement `xml:"RoomType"`
	} `xml:"RoomTypes"`
	RatePlans struct {
		Items []ratePlanElement `xml:"RatePlan"`
	} `xml:"RatePlans"`
	GuestCounts struct {
		Items []guestCount `xml:"GuestCount"`
	} `xml:"GuestCounts"`
	TimeSpan stayTimeSpan `xml:"TimeSpan"`
	Total    *stayTotal   `xml:"Total"`
}

type roomTypeElement struct {
	RoomTypeCode string `xml:"RoomTypeCode,attr"`
	RoomID       string `xml:"RoomID,attr,omitempty"`
}

type ratePlanElement struct {
	RatePlanCode string `xml:"RatePlanCode,attr"`
}

type guestCount struct {
	AgeQualifyingCode int `xml:"AgeQualifyingCode,attr"`
	Count             int `xml:"Count,attr"`
}

type stayTimeSpan struct {
	Start string `xml:"Start,attr"`
	End   string `xml:"End,attr"`
}

type stayTotal struct {
	AmountAfterTax float64 `xml:"AmountAfterTax,attr"`
	CurrencyCode   string  `xml:"CurrencyCode,attr"`
}

type resGuest struct {
	Primary bool `xml:"PrimaryIndicator,attr,omitempty"`
	Profile struct {
		PersonName personName `xml:"Customer>PersonName"`
		Email      string     `xml:"Customer>Email,omitempty"`
		Telephone  *telephone `xml:"Customer>Telephone"`
		Country    string     `xml:"Customer>Address>CountryName,omitempty"`
	} `xml:"Profiles>ProfileInfo>Profile"`
}

type personName struct {
	GivenName string `xml:"GivenName"`
	Surname   string `xml:"Surname"`
}

type telephone struct {
	PhoneNumber string `xml:"PhoneNumber,attr"`
}

type resGlobalInfo struct {
	ReservationIDs struct {
		Items []hotelReservationID `xml:"HotelReservationID"`
	} `xml:"HotelReservationIDs"`
	PaymentCode     string `xml:"GuaranteePaymentCode,omitempty"`
	SpecialRequests struct {
		Items []specialRequest `xml:"SpecialRequest"`
	} `xml:"SpecialRequests"`
	SourceChannel string `xml:"SourceChannel,omitempty"`
}

type hotelReservationID struct {
	Type  string `xml:"ResID_Type,attr"`
	Value string `xml:"ResID_Value,attr"`
}

type specialRequest struct {
	Text string `xml:",chardata"`
}

type hotelRef struct {
	HotelCode string `xml:"HotelCode,attr"`
}

type dateRange struct {
	Start string `xml:"Start,attr,omitempty"`
	End   string `xml:"End,attr,omitempty"`
}

type ratePlanCandidate struct {
	RatePlanCode string `xml:"RatePlanCode,attr"`
}

type ratePlanRQ struct {
	XMLName    xml.Name `xml:"OTA_HotelRatePlanRQ"`
	NS         string   `xml:"xmlns,attr"`
	EchoToken  string   `xml:"EchoToken,attr"`
	Candidates struct {
		HotelRef   hotelRef            `xml:"HotelRef"`
		RatePlans  []ratePlanCandidate `xml:"RatePlanCandidates>RatePlanCandidate"`
		DateRange  *dateRange          `xml:"DateRange"`
	} `xml:"RatePlans"`
}

type selectionCriteria struct {
	SelectionType string `xml:"SelectionType,attr"`
}

type readRQ struct {
	XMLName   xml.Name `xml:"OTA_ReadRQ"`
	NS        string   `xml:"xmlns,attr"`
	EchoToken string   `xml:"EchoToken,attr"`
	Criteria  struct {
		HotelRef  hotelRef          `xml:"HotelRef"`
		Selection selectionCriteria `xml:"SelectionCriteria"`
	} `xml:"ReadRequests>HotelReadRequest"`
}

type notifReportRQ struct {
	XMLName   xml.Name `xml:"OTA_NotifReportRQ"`
	NS        string   `xml:"xmlns,attr"`
	EchoToken string   `xml:"EchoToken,attr"`
	Success   *struct{} `xml:"Success"`
	Details   struct {
		Pending struct {
			Items []uniqueID `xml:"HotelReservation>UniqueID"`
		} `xml:"HotelNotifReport>HotelReservations"`
	} `xml:"NotifDetails"`
}

// Inbound response bodies -------------------------------------------------

type availNotifRS struct {
	XMLName xml.Name `xml:"OTA_HotelAvailNotifRS"`
	responseCommon
}

type rateAmountNotifRS struct {
	XMLName xml.Name `xml:"OTA_HotelRateAmountNotifRS"`
	responseCommon
}

type resNotifRS struct {
	XMLName xml.Name `xml:"OTA_HotelResNotifRS"`
	responseCommon
	Reservations struct {
		Items []hotelReservation `xml:"HotelReservation"`
	} `xml:"HotelReservations"`
}

type ratePlanRS struct {
	XMLName xml.Name `xml:"OTA_HotelRatePlanRS"`
	responseCommon
	RatePlans struct {
		Items []inboundRatePlan `xml:"RatePlan"`
	} `xml:"RatePlans"`
}

type inboundRatePlan struct {
	RatePlanCode string `xml:"RatePlanCode,attr"`
	Description  string `xml:"Description>Text"`
}

type resRetrieveRS struct {
	XMLName xml.Name `xml:"OTA_ResRetrieveRS"`
	responseCommon
	List struct {
		Items []hotelReservation `xml:"HotelReservation"`
	} `xml:"ReservationsList"`
}

type notifReportRS struct {
	XMLName xml.Name `xml:"OTA_NotifReportRS"`
	responseCommon
}
