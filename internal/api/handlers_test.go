// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/adriatichotels/channelbridge/internal/mapper"
	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	"github.com/adriatichotels/channelbridge/internal/retry"
	syncengine "github.com/adriatichotels/channelbridge/internal/sync"
)

const testSecret = "whsec-api-test"

// okSender answers every wire request with a successful empty result.
type okSender struct {
	calls int
}

func (s *okSender) Send(_ context.Context, _ *phobs.WireRequest) (*phobs.ParsedResult, error) {
	s.calls++
	return &phobs.ParsedResult{Success: true}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *syncengine.MemStore) {
	t.Helper()

	store := syncengine.NewMemStore()
	engine, err := retry.NewEngine(retry.Policy{
		MaxAttempts:    2,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		AttemptTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("retry engine: %v", err)
	}

	manager, err := syncengine.NewManager(
		syncengine.Config{Channel: "booking_com"},
		store,
		&okSender{},
		phobs.NewRequestBuilder("HR-ZAG-001"),
		mapper.New(mapper.Config{}),
		engine,
		nil, nil, nil,
	)
	if err != nil {
		t.Fatalf("sync manager: %v", err)
	}

	srv := httptest.NewServer(NewRouter(NewHandler(manager, testSecret), RouterConfig{}))
	t.Cleanup(srv.Close)
	return srv, store
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func webhookBody(t *testing.T, id string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": syncengine.EventReservationCreated,
		"reservation": map[string]interface{}{
			"external_id":      "BDC-API-1",
			"channel":          "booking_com",
			"status":           "CONF",
			"room_type_code":   "DBL",
			"room_id":          "204",
			"check_in":         "2026-09-10",
			"check_out":        "2026-09-14",
			"guest_first_name": "Ivana",
			"guest_last_name":  "Horvat",
			"adults":           2,
			"total_amount":     480,
			"currency":         "EUR",
		},
	})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return raw
}

func postWebhook(t *testing.T, url string, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/webhooks/phobs", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	return resp
}

func TestWebhookSignatureEnforced(t *testing.T) {
	srv, _ := newTestServer(t)
	body := webhookBody(t, "evt-sig")

	resp := postWebhook(t, srv.URL, body, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing signature: status = %d", resp.StatusCode)
	}

	resp = postWebhook(t, srv.URL, body, "deadbeef")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad signature: status = %d", resp.StatusCode)
	}
}

func TestWebhookProcessedAndDeduplicated(t *testing.T) {
	srv, store := newTestServer(t)
	body := webhookBody(t, "evt-1")

	resp := postWebhook(t, srv.URL, body, signBody(body))
	var first map[string]string
	decodeInto(t, resp, &first)
	if resp.StatusCode != http.StatusOK || first["result"] != syncengine.WebhookProcessed {
		t.Fatalf("first delivery: status %d, body %v", resp.StatusCode, first)
	}
	if _, err := store.GetReservationByExternalID(context.Background(), "BDC-API-1"); err != nil {
		t.Errorf("reservation not stored: %v", err)
	}

	resp = postWebhook(t, srv.URL, body, signBody(body))
	var second map[string]string
	decodeInto(t, resp, &second)
	if resp.StatusCode != http.StatusOK || second["result"] != syncengine.WebhookDuplicate {
		t.Errorf("redelivery: status %d, body %v", resp.StatusCode, second)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	body := []byte("{not json")

	resp := postWebhook(t, srv.URL, body, signBody(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/sync/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status syncengine.EngineStatus
	decodeInto(t, resp, &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if status.Channel != "booking_com" {
		t.Errorf("channel = %q", status.Channel)
	}
}

func TestPushAvailabilityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	updates := []models.AvailabilityUpdate{{
		RoomID:    "204",
		RoomType:  models.RoomTypeDouble,
		StartDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		Available: 3,
	}}

	resp := postJSON(t, srv.URL+"/api/v1/sync/availability", updates)
	var result models.BatchResult
	decodeInto(t, resp, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if result.RecordsSuccessful != 1 || result.RecordsFailed != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestPushEmptyBatchRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/sync/rates", []models.RateUpdate{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestTriggerPullEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/sync/pull", nil)
	var result syncengine.PullResult
	decodeInto(t, resp, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if result.Received != 0 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestConflictEndpoints(t *testing.T) {
	srv, store := newTestServer(t)

	c := models.NewConflictRecord(models.ConflictDoubleBooking, models.SeverityHigh, "booking_com")
	if err := store.SaveConflict(context.Background(), c); err != nil {
		t.Fatalf("seed conflict: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/sync/conflicts")
	if err != nil {
		t.Fatalf("GET conflicts: %v", err)
	}
	var listing struct {
		Conflicts []models.ConflictRecord `json:"conflicts"`
		Count     int                     `json:"count"`
	}
	decodeInto(t, resp, &listing)
	if resp.StatusCode != http.StatusOK || listing.Count != 1 {
		t.Fatalf("listing: status %d, %+v", resp.StatusCode, listing)
	}

	resp = postJSON(t, srv.URL+"/api/v1/sync/conflicts/"+c.ID.String()+"/resolve",
		resolveRequest{Resolution: "relocated guest"})
	var resolved models.ConflictRecord
	decodeInto(t, resp, &resolved)
	if resp.StatusCode != http.StatusOK || resolved.Status != models.ConflictResolved {
		t.Errorf("resolve: status %d, %+v", resp.StatusCode, resolved)
	}

	resp = postJSON(t, srv.URL+"/api/v1/sync/conflicts/not-a-uuid/resolve",
		resolveRequest{Resolution: "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/v1/sync/conflicts/00000000-0000-0000-0000-000000000000/resolve",
		resolveRequest{Resolution: "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: status = %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
	}
}
