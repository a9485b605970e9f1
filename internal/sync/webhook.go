// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
webhook.go - Inbound Webhook Events

Phobs pushes events between pulls: a new booking, a modification, a
cancellation, or an inventory change on the channel side. Every event is
verified against the shared secret over the raw body before decoding,
and deduplicated by event id, because the channel redelivers on any
non-2xx response. An event that fails transiently is unmarked again so
the redelivery is applied rather than deduplicated.
*/

package sync

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/phobs"
)

// Webhook event types.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationModified  = "reservation.modified"
	EventReservationCancelled = "reservation.cancelled"
	EventAvailabilityUpdated  = "availability.updated"
	EventRatesUpdated         = "rates.updated"
)

// Webhook processing results, used as the metric label.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookRejected  = "rejected"
	WebhookError     = "error"
)

// WebhookEvent is one decoded webhook payload.
type WebhookEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	// Reservation is set on reservation.* events.
	Reservation *phobs.ReservationData `json:"reservation,omitempty"`

	// Availability is set on availability.updated events.
	Availability *WebhookAvailability `json:"availability,omitempty"`

	// Rates is set on rates.updated events.
	Rates *WebhookRates `json:"rates,omitempty"`
}

// WebhookAvailability is the channel's view of open inventory.
type WebhookAvailability struct {
	RoomTypeCode string `json:"room_type_code"`
	Date         string `json:"date"` // YYYY-MM-DD
	Available    int    `json:"available"`
}

// WebhookRates is the channel's view of a rate.
type WebhookRates struct {
	RoomTypeCode string  `json:"room_type_code"`
	RatePlanCode string  `json:"rate_plan_code"`
	Date         string  `json:"date"` // YYYY-MM-DD
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// VerifySignature checks an HMAC-SHA256 hex signature over the raw
// request body. Verification runs on the raw bytes, never on re-encoded
// JSON; any re-serialization would change the signature.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook applies one verified, decoded event. The returned result
// is one of the Webhook* constants; duplicates succeed without effect so
// the channel stops redelivering.
func (m *Manager) ProcessWebhook(ctx context.Context, ev *WebhookEvent) (string, error) {
	if ev.ID == "" || ev.Type == "" {
		metrics.RecordWebhook(ev.Type, WebhookRejected)
		return WebhookRejected, fmt.Errorf("webhook event: id and type are required")
	}

	fresh, err := m.store.MarkEventProcessed(ctx, ev.ID)
	if err != nil {
		metrics.RecordWebhook(ev.Type, WebhookError)
		return WebhookError, err
	}
	if !fresh {
		metrics.RecordWebhook(ev.Type, WebhookDuplicate)
		m.log.Debug().Str("event", ev.ID).Str("type", ev.Type).Msg("Duplicate webhook event ignored")
		return WebhookDuplicate, nil
	}

	switch ev.Type {
	case EventReservationCreated, EventReservationModified, EventReservationCancelled:
		return m.applyReservationEvent(ctx, ev)
	case EventAvailabilityUpdated:
		if ev.Availability == nil {
			metrics.RecordWebhook(ev.Type, WebhookRejected)
			return WebhookRejected, fmt.Errorf("webhook %s: availability payload missing", ev.ID)
		}
		m.log.Info().Str("event", ev.ID).
			Str("room_type", ev.Availability.RoomTypeCode).
			Str("date", ev.Availability.Date).
			Int("available", ev.Availability.Available).
			Msg("Channel availability changed")
		metrics.RecordWebhook(ev.Type, WebhookProcessed)
		return WebhookProcessed, nil
	case EventRatesUpdated:
		if ev.Rates == nil {
			metrics.RecordWebhook(ev.Type, WebhookRejected)
			return WebhookRejected, fmt.Errorf("webhook %s: rates payload missing", ev.ID)
		}
		m.log.Info().Str("event", ev.ID).
			Str("room_type", ev.Rates.RoomTypeCode).
			Str("rate_plan", ev.Rates.RatePlanCode).
			Float64("amount", ev.Rates.Amount).
			Msg("Channel rate changed")
		metrics.RecordWebhook(ev.Type, WebhookProcessed)
		return WebhookProcessed, nil
	default:
		metrics.RecordWebhook(ev.Type, WebhookRejected)
		return WebhookRejected, fmt.Errorf("webhook %s: unknown event type %q", ev.ID, ev.Type)
	}
}

func (m *Manager) applyReservationEvent(ctx context.Context, ev *WebhookEvent) (string, error) {
	if ev.Reservation == nil {
		metrics.RecordWebhook(ev.Type, WebhookRejected)
		return WebhookRejected, fmt.Errorf("webhook %s: reservation payload missing", ev.ID)
	}

	data := *ev.Reservation
	if ev.Type == EventReservationCancelled {
		// The cancellation verb wins over whatever status the payload
		// carries; channels are inconsistent here.
		data.Status = "Cancel"
	}

	mapped := m.mapper.ToInternal(data)
	if !mapped.Success {
		metrics.RecordWebhook(ev.Type, WebhookRejected)
		return WebhookRejected, fmt.Errorf("webhook %s: %s", ev.ID, mapped.Errors[0])
	}
	m.warnAll(mapped.Warnings)

	res := mapped.Data
	if _, err := m.handleInbound(ctx, &res); err != nil {
		// Free the event id: the handler answers non-2xx, the channel
		// redelivers, and the redelivery must be retried, not swallowed
		// as a duplicate.
		if uerr := m.store.UnmarkEvent(ctx, ev.ID); uerr != nil {
			m.log.Error().Err(uerr).Str("event", ev.ID).Msg("Event unmark failed")
		}
		metrics.RecordWebhook(ev.Type, WebhookError)
		return WebhookError, err
	}

	metrics.RecordWebhook(ev.Type, WebhookProcessed)
	m.log.Info().Str("event", ev.ID).Str("type", ev.Type).
		Str("external_id", res.ExternalID.String()).
		Msg("Webhook reservation applied")
	return WebhookProcessed, nil
}
