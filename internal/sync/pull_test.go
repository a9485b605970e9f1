// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	"github.com/adriatichotels/channelbridge/internal/retry"
)

func pulledReservation(externalID, room string) phobs.ReservationData {
	return phobs.ReservationData{
		ExternalID:     externalID,
		Channel:        "booking_com",
		Status:         "CONF",
		RoomTypeCode:   "DBL",
		RoomID:         room,
		CheckIn:        "2026-09-10",
		CheckOut:       "2026-09-14",
		GuestFirstName: "Ana",
		GuestLastName:  "Kovac",
		Adults:         2,
		TotalAmount:    500,
		Currency:       "EUR",
	}
}

// pullSender scripts the pull and confirm legs.
type pullSender struct {
	fakeSender
	reservations []phobs.ReservationData
	confirmErr   error
}

func newPullSender(reservations ...phobs.ReservationData) *pullSender {
	s := &pullSender{reservations: reservations}
	s.respond = func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		switch req.Kind {
		case phobs.KindReservationPull:
			return &phobs.ParsedResult{Success: true, Reservations: s.reservations}, nil
		case phobs.KindReservationConfirm:
			if s.confirmErr != nil {
				return nil, s.confirmErr
			}
			return &phobs.ParsedResult{Success: true}, nil
		default:
			return &phobs.ParsedResult{Success: true}, nil
		}
	}
	return s
}

func TestPullStoresAndConfirms(t *testing.T) {
	sender := newPullSender(
		pulledReservation("BDC-1", "101"),
		pulledReservation("BDC-2", "102"),
	)
	m, store := newTestManager(t, sender, Config{})

	result, err := m.PullReservations(context.Background())
	if err != nil {
		t.Fatalf("PullReservations: %v", err)
	}
	if result.Received != 2 || result.Stored != 2 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}

	if _, err := store.GetReservationByExternalID(context.Background(), "BDC-1"); err != nil {
		t.Errorf("BDC-1 not stored: %v", err)
	}

	kinds := sender.kinds()
	if len(kinds) != 2 || kinds[0] != phobs.KindReservationPull || kinds[1] != phobs.KindReservationConfirm {
		t.Errorf("request sequence = %v", kinds)
	}
}

func TestPullEmptyIsValidAndSkipsConfirm(t *testing.T) {
	sender := newPullSender()
	m, _ := newTestManager(t, sender, Config{})

	result, err := m.PullReservations(context.Background())
	if err != nil {
		t.Fatalf("PullReservations: %v", err)
	}
	if result.Received != 0 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
	if kinds := sender.kinds(); len(kinds) != 1 {
		t.Errorf("empty pull must not send a confirm, sent %v", kinds)
	}
}

func TestPullFailedItemNotAcknowledged(t *testing.T) {
	broken := pulledReservation("BDC-BAD", "103")
	broken.CheckOut = "2026-09-01" // before check-in, mapping aborts
	sender := newPullSender(pulledReservation("BDC-OK", "101"), broken)
	m, store := newTestManager(t, sender, Config{})

	result, err := m.PullReservations(context.Background())
	if err != nil {
		t.Fatalf("PullReservations: %v", err)
	}
	if result.Stored != 1 || result.Failed != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].ExternalID != "BDC-BAD" {
		t.Errorf("item errors = %+v", result.Errors)
	}
	if _, err := store.GetReservationByExternalID(context.Background(), "BDC-BAD"); err == nil {
		t.Error("failed item must not be stored")
	}

	// Only the processed reservation is acknowledged; the broken one stays
	// undelivered for the next pull.
	confirm := sender.sent()[1]
	if confirm.Kind != phobs.KindReservationConfirm {
		t.Fatalf("second request = %v", confirm.Kind)
	}
	body := string(confirm.Body)
	if !strings.Contains(body, "BDC-OK") || strings.Contains(body, "BDC-BAD") {
		t.Errorf("confirm body acknowledges wrong ids:\n%s", body)
	}
}

func TestPullConfirmFailureIsNonFatal(t *testing.T) {
	sender := newPullSender(pulledReservation("BDC-1", "101"))
	sender.confirmErr = &retry.HTTPError{StatusCode: 503, Endpoint: "/ota"}
	m, store := newTestManager(t, sender, Config{})

	result, err := m.PullReservations(context.Background())
	if err != nil {
		t.Fatalf("confirm failure must not fail the pull: %v", err)
	}
	if result.Stored != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.ConfirmError == "" {
		t.Error("confirm failure must be surfaced on the result")
	}
	if _, err := store.GetReservationByExternalID(context.Background(), "BDC-1"); err != nil {
		t.Error("data must be stored despite failed acknowledgement")
	}
}

func TestPullModifyKeepsInternalID(t *testing.T) {
	sender := newPullSender(pulledReservation("BDC-1", "101"))
	m, store := newTestManager(t, sender, Config{})

	existing := internalReservation("R-55", "101", day(10), day(14))
	existing.ExternalID = "BDC-1"
	if err := store.UpsertReservation(context.Background(), existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := m.PullReservations(context.Background()); err != nil {
		t.Fatalf("PullReservations: %v", err)
	}
	got, err := store.GetReservationByExternalID(context.Background(), "BDC-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != "R-55" {
		t.Errorf("internal id = %q, want preserved R-55", got.ID)
	}
	if got.Guest.LastName != "Kovac" {
		t.Errorf("update not applied: %+v", got.Guest)
	}
}

func TestPullTransportFailureSurfaces(t *testing.T) {
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		return nil, &retry.HTTPError{StatusCode: 401, Endpoint: "/ota"}
	}}
	m, store := newTestManager(t, sender, Config{})

	if _, err := m.PullReservations(context.Background()); err == nil {
		t.Fatal("transport failure must surface")
	}
	recs, _ := store.ListSyncRecords(context.Background(), models.SyncFailed)
	if len(recs) != 1 || recs[0].Direction != models.DirectionInbound {
		t.Errorf("failed records = %+v", recs)
	}
	// 401 is non-retryable: exactly one attempt.
	if got := len(sender.sent()); got != 1 {
		t.Errorf("attempts = %d, want 1 for auth failure", got)
	}
}
