// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
parser.go - Inbound Envelope Parsing

The parser never lets a malformed payload escape as a raw error: every
input produces a typed ParsedResult. A SOAP fault short-circuits to an
error list; otherwise the body is scanned for the first known response
type by priority, falling back to any OTA_*RS element, and the complete
absence of a recognizable payload is itself an error (NO_RESPONSE).
*/

package phobs

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// Error type tags used on normalized wire errors.
const (
	ErrTypeFault      = "FAULT"
	ErrTypeParse      = "PARSE_ERROR"
	ErrTypeNoResponse = "NO_RESPONSE"
)

// WireError is one normalized error or warning extracted from a response.
type WireError struct {
	Type     string `json:"type"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	RecordID string `json:"record_id,omitempty"`
}

// RatePlanInfo is one rate plan returned by a rate-plan query.
type RatePlanInfo struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// ParsedResult is the uniform result of parsing an inbound envelope.
type ParsedResult struct {
	Success      bool              `json:"success"`
	ResponseType string            `json:"response_type,omitempty"`
	Errors       []WireError       `json:"errors,omitempty"`
	Warnings     []WireError       `json:"warnings,omitempty"`
	Reservations []ReservationData `json:"reservations,omitempty"`
	RatePlans    []RatePlanInfo    `json:"rate_plans,omitempty"`
}

// knownResponsePriority is the order in which known response types are
// matched when a body carries more than one element.
var knownResponsePriority = []string{
	"OTA_ResRetrieveRS",
	"OTA_HotelResNotifRS",
	"OTA_NotifReportRS",
	"OTA_HotelAvailNotifRS",
	"OTA_HotelRateAmountNotifRS",
	"OTA_HotelRatePlanRS",
}

func parseErrorResult(msg string) *ParsedResult {
	return &ParsedResult{
		Success: false,
		Errors:  []WireError{{Type: ErrTypeParse, Message: msg}},
	}
}

// ParseResponse parses a raw inbound envelope into a ParsedResult.
func ParseResponse(raw []byte) *ParsedResult {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &ParsedResult{
			Success: false,
			Errors:  []WireError{{Type: ErrTypeNoResponse, Message: "empty response body"}},
		}
	}

	var env inboundEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return parseErrorResult("unparseable envelope: " + err.Error())
	}

	if env.Body.Fault != nil {
		f := env.Body.Fault
		msg := f.String
		if msg == "" {
			msg = "SOAP fault"
		}
		return &ParsedResult{
			Success: false,
			Errors: []WireError{{
				Type:    ErrTypeFault,
				Code:    f.Code,
				Message: strings.TrimSpace(msg + " " + f.Detail),
			}},
		}
	}

	elements, err := topLevelElements(env.Body.Raw)
	if err != nil {
		return parseErrorResult("unparseable body: " + err.Error())
	}

	// First matching well-known type wins, in priority order.
	for _, name := range knownResponsePriority {
		if raw, ok := elements[name]; ok {
			return decodeKnown(name, raw)
		}
	}

	// Fallback: any recognizably-prefixed response type.
	for name, raw := range elements {
		if strings.HasPrefix(name, "OTA_") && strings.HasSuffix(name, "RS") {
			return decodeGeneric(name, raw)
		}
	}

	return &ParsedResult{
		Success: false,
		Errors:  []WireError{{Type: ErrTypeNoResponse, Message: "no recognizable response payload in body"}},
	}
}

// topLevelElements splits the body inner XML into its top-level elements,
// keyed by local element name. Later duplicates keep the first occurrence.
func topLevelElements(inner []byte) (map[string][]byte, error) {
	elements := make(map[string][]byte)
	dec := xml.NewDecoder(bytes.NewReader(inner))
	for {
		tok, err := dec.Token()
		if err != nil {
			break // io.EOF or trailing garbage after elements we already have
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var node rawNode
		if err := dec.DecodeElement(&node, &start); err != nil {
			return nil, err
		}
		name := start.Name.Local
		if _, exists := elements[name]; !exists {
			buf, err := reencode(start, node)
			if err != nil {
				return nil, err
			}
			elements[name] = buf
		}
	}
	if len(elements) == 0 {
		return elements, nil
	}
	return elements, nil
}

// rawNode captures one element verbatim for re-decoding.
type rawNode struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Inner []byte     `xml:",innerxml"`
}

func reencode(start xml.StartElement, node rawNode) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<" + start.Name.Local)
	for _, a := range node.Attrs {
		buf.WriteString(" " + a.Name.Local + `="` + escapeAttr(a.Value) + `"`)
	}
	buf.WriteString(">")
	buf.Write(node.Inner)
	buf.WriteString("</" + start.Name.Local + ">")
	return buf.Bytes(), nil
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// decodeKnown decodes one of the well-known response types.
func decodeKnown(name string, raw []byte) *ParsedResult {
	switch name {
	case "OTA_ResRetrieveRS":
		var rs resRetrieveRS
		if err := xml.Unmarshal(raw, &rs); err != nil {
			return parseErrorResult("decode " + name + ": " + err.Error())
		}
		result := resultFromCommon(name, rs.responseCommon)
		for _, hr := range rs.List.Items {
			result.Reservations = append(result.Reservations, flattenReservation(hr))
		}
		return result
	case "OTA_HotelResNotifRS":
		var rs resNotifRS
		if err := xml.Unmarshal(raw, &rs); err != nil {
			return parseErrorResult("decode " + name + ": " + err.Error())
		}
		result := resultFromCommon(name, rs.responseCommon)
		for _, hr := range rs.Reservations.Items {
			result.Reservations = append(result.Reservations, flattenReservation(hr))
		}
		return result
	case "OTA_NotifReportRS":
		var rs notifReportRS
		if err := xml.Unmarshal(raw, &rs); err != nil {
			return parseErrorResult("decode " + name + ": " + err.Error())
		}
		return resultFromCommon(name, rs.responseCommon)
	case "OTA_HotelAvailNotifRS":
		var rs availNotifRS
		if err := xml.Unmarshal(raw, &rs); err != nil {
			return parseErrorResult("decode " + name + ": " + err.Error())
		}
		return resultFromCommon(name, rs.responseCommon)
	case "OTA_HotelRateAmountNotifRS":
		var rs rateAmountNotifRS
		if err := xml.Unmarshal(raw, &rs); err != nil {
			return parseErrorResult("decode " + name + ": " + err.Error())
		}
		return resultFromCommon(name, rs.responseCommon)
	case "OTA_HotelRatePlanRS":
		var rs ratePlanRS
		if err := xml.Unmarshal(raw, &rs); err != nil {
			return parseErrorResult("decode " + name + ": " + err.Error())
		}
		result := resultFromCommon(name, rs.responseCommon)
		for _, rp := range rs.RatePlans.Items {
			result.RatePlans = append(result.RatePlans, RatePlanInfo{
				Code:        rp.RatePlanCode,
				Description: strings.TrimSpace(rp.Description),
			})
		}
		return result
	default:
		return decodeGeneric(name, raw)
	}
}

// decodeGeneric decodes an unknown OTA_*RS element well enough to surface
// its success flag and error/warning blocks.
func decodeGeneric(name string, raw []byte) *ParsedResult {
	var rs struct {
		responseCommon
	}
	if err := xml.Unmarshal(raw, &rs); err != nil {
		return parseErrorResult("decode " + name + ": " + err.Error())
	}
	return resultFromCommon(name, rs.responseCommon)
}

// resultFromCommon builds a result from the shared status sections. A
// response is successful when it carries an explicit Success marker or,
// absent one, when it carries no errors. Errors and warnings are surfaced
// either way.
func resultFromCommon(name string, common responseCommon) *ParsedResult {
	result := &ParsedResult{ResponseType: name}
	if common.Errors != nil {
		for _, e := range common.Errors.Errors {
			result.Errors = append(result.Errors, normalizeWireError(e))
		}
	}
	if common.Warnings != nil {
		for _, w := range common.Warnings.Warnings {
			result.Warnings = append(result.Warnings, normalizeWireError(w))
		}
	}
	result.Success = common.Success != nil || len(result.Errors) == 0
	return result
}

// normalizeWireError normalizes the heterogeneous raw error shapes
// (attribute text vs element text) into the uniform WireError.
func normalizeWireError(e wireErrorXML) WireError {
	msg := e.ShortText
	if msg == "" {
		msg = strings.TrimSpace(e.Text)
	}
	return WireError{Type: e.Type, Code: e.Code, Message: msg, RecordID: e.RecordID}
}

// flattenReservation flattens the nested guest/room-stay/total structure
// of one HotelReservation into the flat pull record the mapper consumes.
func flattenReservation(hr hotelReservation) ReservationData {
	data := ReservationData{
		Status:   hr.ResStatus,
		BookedAt: hr.CreateDateTime,
	}

	for _, id := range hr.UniqueIDs {
		switch id.Type {
		case "16":
			data.BookingRef = id.ID
		default:
			if data.ExternalID == "" {
				data.ExternalID = id.ID
			}
		}
	}

	if len(hr.RoomStays.Items) > 0 {
		stay := hr.RoomStays.Items[0]
		if len(stay.RoomTypes.Items) > 0 {
			data.RoomTypeCode = stay.RoomTypes.Items[0].RoomTypeCode
			data.RoomID = stay.RoomTypes.Items[0].RoomID
		}
		if len(stay.RatePlans.Items) > 0 {
			data.RatePlanCode = stay.RatePlans.Items[0].RatePlanCode
		}
		for _, gc := range stay.GuestCounts.Items {
			switch gc.AgeQualifyingCode {
			case AgeCodeAdult:
				data.Adults += gc.Count
			case AgeCodeChild:
				data.Children += gc.Count
			}
		}
		data.CheckIn = stay.TimeSpan.Start
		data.CheckOut = stay.TimeSpan.End
		if stay.Total != nil {
			data.TotalAmount = stay.Total.AmountAfterTax
			data.Currency = stay.Total.CurrencyCode
		}
		if data.Channel == "" {
			data.Channel = stay.SourceCode
		}
	}

	for _, g := range hr.ResGuests.Items {
		if !g.Primary && data.GuestLastName != "" {
			continue
		}
		data.GuestFirstName = g.Profile.PersonName.GivenName
		data.GuestLastName = g.Profile.PersonName.Surname
		data.GuestEmail = g.Profile.Email
		if g.Profile.Telephone != nil {
			data.GuestPhone = g.Profile.Telephone.PhoneNumber
		}
		data.GuestCountry = g.Profile.Country
		if g.Primary {
			break
		}
	}

	if hr.GlobalInfo != nil {
		if hr.GlobalInfo.SourceChannel != "" {
			data.Channel = hr.GlobalInfo.SourceChannel
		}
		data.PaymentCode = hr.GlobalInfo.PaymentCode
		var requests []string
		for _, sr := range hr.GlobalInfo.SpecialRequests.Items {
			if text := strings.TrimSpace(sr.Text); text != "" {
				requests = append(requests, text)
			}
		}
		data.SpecialRequests = strings.Join(requests, "; ")
		for _, id := range hr.GlobalInfo.ReservationIDs.Items {
			if id.Type == "StatusCode" && data.Status == "" {
				data.Status = id.Value
			}
		}
	}

	return data
}
