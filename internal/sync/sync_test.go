// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/adriatichotels/channelbridge/internal/mapper"
	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	"github.com/adriatichotels/channelbridge/internal/retry"
	"github.com/adriatichotels/channelbridge/internal/telemetry"
)

// fakeSender scripts responses per request kind and records every
// dispatched request.
type fakeSender struct {
	mu       stdsync.Mutex
	requests []*phobs.WireRequest

	// respond overrides the default all-success response.
	respond func(req *phobs.WireRequest) (*phobs.ParsedResult, error)
}

func (f *fakeSender) Send(_ context.Context, req *phobs.WireRequest) (*phobs.ParsedResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	return &phobs.ParsedResult{Success: true}, nil
}

func (f *fakeSender) sent() []*phobs.WireRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*phobs.WireRequest(nil), f.requests...)
}

func (f *fakeSender) kinds() []phobs.RequestKind {
	var out []phobs.RequestKind
	for _, r := range f.sent() {
		out = append(out, r.Kind)
	}
	return out
}

func testEngine(t *testing.T, attempts int) *retry.Engine {
	t.Helper()
	e, err := retry.NewEngine(retry.Policy{
		MaxAttempts:    attempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2,
		AttemptTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func newTestManager(t *testing.T, sender phobs.Sender, cfg Config) (*Manager, *MemStore) {
	t.Helper()
	if cfg.Channel == "" {
		cfg.Channel = "booking_com"
	}
	store := NewMemStore()
	m, err := NewManager(
		cfg,
		store,
		sender,
		phobs.NewRequestBuilder("HTL-001"),
		mapper.New(mapper.Config{}),
		testEngine(t, 3),
		telemetry.NewMonitor(telemetry.MonitorConfig{}),
		telemetry.NewTracer(50),
		nil,
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store
}

func internalReservation(id, room string, checkIn, checkOut time.Time) *models.Reservation {
	return &models.Reservation{
		ID:       models.InternalReservationID(id),
		RoomID:   models.RoomID(room),
		RoomType: models.RoomTypeDouble,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guest:    models.Guest{FirstName: "Marko", LastName: "Novak"},
		Adults:   2,
		Money:    models.Money{TotalAmount: 400, Currency: "EUR"},
		Status:   models.StatusConfirmed,
		BookedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func day(d int) time.Time { return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC) }

func TestPushAvailability(t *testing.T) {
	sender := &fakeSender{}
	m, store := newTestManager(t, sender, Config{})

	result, err := m.PushAvailability(context.Background(), []models.AvailabilityUpdate{
		{RoomType: models.RoomTypeDouble, StartDate: day(1), EndDate: day(30), Available: 4},
		{RoomType: models.RoomTypeSuite, StartDate: day(1), EndDate: day(5), StopSale: true},
	})
	if err != nil {
		t.Fatalf("PushAvailability: %v", err)
	}
	if result.RecordsSuccessful != 2 || result.RecordsFailed != 0 {
		t.Errorf("result = %+v", result)
	}
	if kinds := sender.kinds(); len(kinds) != 1 || kinds[0] != phobs.KindAvailabilityUpdate {
		t.Errorf("sent = %v", kinds)
	}

	recs, _ := store.ListSyncRecords(context.Background(), models.SyncCompleted)
	if len(recs) != 1 || recs[0].EntityKind != models.EntityAvailability {
		t.Errorf("sync records = %+v", recs)
	}
}

func TestPushAvailabilityMappingAbort(t *testing.T) {
	sender := &fakeSender{}
	m, store := newTestManager(t, sender, Config{})

	result, err := m.PushAvailability(context.Background(), []models.AvailabilityUpdate{
		{RoomType: models.RoomTypeDouble, StartDate: day(10), EndDate: day(1), Available: 2},
	})
	if err != nil {
		t.Fatalf("PushAvailability: %v", err)
	}
	if result.RecordsFailed != 1 || len(result.Errors) == 0 {
		t.Errorf("result = %+v", result)
	}
	if len(sender.sent()) != 0 {
		t.Error("aborted mapping must not reach the wire")
	}
	recs, _ := store.ListSyncRecords(context.Background(), models.SyncFailed)
	if len(recs) != 1 {
		t.Errorf("failed records = %d", len(recs))
	}
}

func TestSingleFlightPerKind(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		if req.Kind == phobs.KindRateUpdate {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
		return &phobs.ParsedResult{Success: true}, nil
	}}
	m, _ := newTestManager(t, sender, Config{})

	errc := make(chan error, 1)
	go func() {
		_, err := m.PushRates(context.Background(), []models.RateUpdate{{
			RoomType: models.RoomTypeDouble, RatePlan: "BAR",
			StartDate: day(1), EndDate: day(5), Amount: 100, Currency: "EUR",
		}})
		errc <- err
	}()
	<-started

	// Same kind is rejected while the first batch runs.
	_, err := m.PushRates(context.Background(), []models.RateUpdate{{
		RoomType: models.RoomTypeDouble, RatePlan: "BAR",
		StartDate: day(6), EndDate: day(9), Amount: 90, Currency: "EUR",
	}})
	if !errors.Is(err, ErrSyncInFlight) {
		t.Errorf("concurrent same-kind batch: err = %v, want ErrSyncInFlight", err)
	}

	// A different kind proceeds.
	if _, err := m.PushAvailability(context.Background(), []models.AvailabilityUpdate{
		{RoomType: models.RoomTypeDouble, StartDate: day(1), EndDate: day(2), Available: 1},
	}); err != nil {
		t.Errorf("different-kind batch: %v", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first batch: %v", err)
	}

	// The slot frees up afterwards.
	if _, err := m.PushRates(context.Background(), []models.RateUpdate{{
		RoomType: models.RoomTypeDouble, RatePlan: "BAR",
		StartDate: day(10), EndDate: day(12), Amount: 95, Currency: "EUR",
	}}); err != nil {
		t.Errorf("batch after release: %v", err)
	}
}

func TestPullAndReservationPushRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		if req.Kind == phobs.KindReservationPull {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
		return &phobs.ParsedResult{Success: true}, nil
	}}
	m, _ := newTestManager(t, sender, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := m.PullReservations(context.Background())
		done <- err
	}()
	<-started

	// An outbound reservation push is a distinct flow and proceeds while
	// the pull is in flight.
	if _, err := m.PushReservations(context.Background(), []*models.Reservation{
		internalReservation("R-1", "101", day(1), day(3)),
	}); err != nil {
		t.Errorf("reservation push during pull: %v", err)
	}

	// A second pull is still rejected.
	if _, err := m.PullReservations(context.Background()); !errors.Is(err, ErrSyncInFlight) {
		t.Errorf("concurrent pull: err = %v, want ErrSyncInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("pull: %v", err)
	}
}

// spyStore records every sync record status it is asked to persist.
type spyStore struct {
	*MemStore
	mu       stdsync.Mutex
	statuses []models.SyncStatus
}

func (s *spyStore) SaveSyncRecord(ctx context.Context, rec *models.SyncRecord) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, rec.Status)
	s.mu.Unlock()
	return s.MemStore.SaveSyncRecord(ctx, rec)
}

func TestSyncRecordPassesThroughRetry(t *testing.T) {
	calls := 0
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		calls++
		if calls == 1 {
			return nil, &retry.HTTPError{StatusCode: 503, Endpoint: "/ota"}
		}
		return &phobs.ParsedResult{Success: true}, nil
	}}
	store := &spyStore{MemStore: NewMemStore()}
	m, err := NewManager(
		Config{Channel: "booking_com"},
		store,
		sender,
		phobs.NewRequestBuilder("HTL-001"),
		mapper.New(mapper.Config{}),
		testEngine(t, 3),
		nil, nil, nil,
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	result, err := m.PushAvailability(context.Background(), []models.AvailabilityUpdate{
		{RoomType: models.RoomTypeDouble, StartDate: day(1), EndDate: day(2), Available: 1},
	})
	if err != nil || result.RecordsFailed != 0 {
		t.Fatalf("PushAvailability: %+v, %v", result, err)
	}

	want := []models.SyncStatus{models.SyncPending, models.SyncInProgress, models.SyncRetry, models.SyncCompleted}
	store.mu.Lock()
	got := append([]models.SyncStatus(nil), store.statuses...)
	store.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("status transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}

	recs, _ := store.ListSyncRecords(context.Background(), models.SyncCompleted)
	if len(recs) != 1 || recs[0].Attempts != 2 {
		t.Errorf("completed record = %+v, want 2 attempts", recs)
	}
}

func TestPushReservationsPartialFailure(t *testing.T) {
	calls := 0
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		calls++
		if calls == 2 {
			return &phobs.ParsedResult{Success: false, Errors: []phobs.WireError{
				{Code: "402", Message: "rate plan closed"},
			}}, nil
		}
		return &phobs.ParsedResult{Success: true}, nil
	}}
	m, _ := newTestManager(t, sender, Config{})

	batch := []*models.Reservation{
		internalReservation("R-1", "101", day(1), day(3)),
		internalReservation("R-2", "102", day(1), day(3)),
		internalReservation("R-3", "103", day(1), day(3)),
	}
	result, err := m.PushReservations(context.Background(), batch)
	if err != nil {
		t.Fatalf("PushReservations: %v", err)
	}
	if result.RecordsSuccessful != 2 || result.RecordsFailed != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].InternalID != "R-2" {
		t.Errorf("item errors = %+v", result.Errors)
	}
	if result.Errors[0].Message != "rate plan closed" {
		t.Errorf("error message = %q", result.Errors[0].Message)
	}
}

func TestPushReservationsValidationSkipsWire(t *testing.T) {
	sender := &fakeSender{}
	m, _ := newTestManager(t, sender, Config{})

	bad := internalReservation("R-9", "101", day(3), day(1)) // inverted stay
	good := internalReservation("R-10", "102", day(1), day(3))

	result, err := m.PushReservations(context.Background(), []*models.Reservation{bad, good})
	if err != nil {
		t.Fatalf("PushReservations: %v", err)
	}
	if result.RecordsFailed != 1 || result.RecordsSuccessful != 1 {
		t.Errorf("result = %+v", result)
	}
	if got := len(sender.sent()); got != 1 {
		t.Errorf("wire requests = %d, want 1 (invalid item must not be sent)", got)
	}
	if result.Errors[0].Kind != "validation" {
		t.Errorf("error kind = %q", result.Errors[0].Kind)
	}
}

func TestPushReservationsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return &phobs.ParsedResult{Success: true}, nil
	}}
	m, _ := newTestManager(t, sender, Config{})

	batch := []*models.Reservation{
		internalReservation("R-1", "101", day(1), day(3)),
		internalReservation("R-2", "102", day(1), day(3)),
		internalReservation("R-3", "103", day(1), day(3)),
	}
	result, err := m.PushReservations(ctx, batch)
	if err != nil {
		t.Fatalf("PushReservations: %v", err)
	}
	if !result.Cancelled {
		t.Error("result must be marked cancelled")
	}
	if result.RecordsProcessed >= len(batch) {
		t.Errorf("processed = %d, want fewer than %d", result.RecordsProcessed, len(batch))
	}
}

func TestPushReservationAssignsExternalID(t *testing.T) {
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		return &phobs.ParsedResult{
			Success:      true,
			Reservations: []phobs.ReservationData{{ExternalID: "BDC-NEW-1"}},
		}, nil
	}}
	m, store := newTestManager(t, sender, Config{})

	r := internalReservation("R-1", "101", day(1), day(3))
	if _, err := m.PushReservations(context.Background(), []*models.Reservation{r}); err != nil {
		t.Fatalf("PushReservations: %v", err)
	}
	if r.ExternalID != "BDC-NEW-1" {
		t.Errorf("external id = %q", r.ExternalID)
	}
	stored, err := store.GetReservationByExternalID(context.Background(), "BDC-NEW-1")
	if err != nil || stored.ID != "R-1" {
		t.Errorf("stored = %+v, err = %v", stored, err)
	}
}

func TestPushRetriesTransientFailure(t *testing.T) {
	calls := 0
	sender := &fakeSender{respond: func(req *phobs.WireRequest) (*phobs.ParsedResult, error) {
		calls++
		if calls < 3 {
			return nil, &retry.HTTPError{StatusCode: 503, Endpoint: "/ota"}
		}
		return &phobs.ParsedResult{Success: true}, nil
	}}
	m, _ := newTestManager(t, sender, Config{})

	result, err := m.PushAvailability(context.Background(), []models.AvailabilityUpdate{
		{RoomType: models.RoomTypeDouble, StartDate: day(1), EndDate: day(2), Available: 1},
	})
	if err != nil {
		t.Fatalf("PushAvailability: %v", err)
	}
	if result.RecordsFailed != 0 {
		t.Errorf("result = %+v", result)
	}
	if calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
}

func TestStatusSnapshot(t *testing.T) {
	sender := &fakeSender{}
	m, store := newTestManager(t, sender, Config{Channel: "booking_com"})

	if _, err := m.PushAvailability(context.Background(), []models.AvailabilityUpdate{
		{RoomType: models.RoomTypeDouble, StartDate: day(1), EndDate: day(2), Available: 1},
	}); err != nil {
		t.Fatalf("push: %v", err)
	}
	pending := models.NewSyncRecord(models.EntityRate, "booking_com", models.DirectionOutbound)
	if err := store.SaveSyncRecord(context.Background(), pending); err != nil {
		t.Fatalf("save: %v", err)
	}

	status, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Channel != "booking_com" {
		t.Errorf("channel = %q", status.Channel)
	}
	if status.QueueLength != 1 {
		t.Errorf("queue length = %d", status.QueueLength)
	}
	if _, ok := status.Operations["push_availability"]; !ok {
		t.Errorf("operations = %v", status.Operations)
	}
}
