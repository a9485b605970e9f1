// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
handlers.go - HTTP Handlers

Operator-facing endpoints: manual sync triggers, engine status, conflict
management and trace inspection, plus the inbound Phobs webhook. Webhook
bodies are verified against the shared secret before decoding.
*/

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	syncengine "github.com/adriatichotels/channelbridge/internal/sync"
)

// SignatureHeader carries the webhook body's HMAC-SHA256 hex signature.
const SignatureHeader = "X-Phobs-Signature"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the ChannelBridge HTTP API.
type Handler struct {
	engine        *syncengine.Manager
	webhookSecret string
	log           zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(engine *syncengine.Manager, webhookSecret string) *Handler {
	return &Handler{
		engine:        engine,
		webhookSecret: webhookSecret,
		log:           logging.With().Str("component", "api").Logger(),
	}
}

// apiError is the error response body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}

// decodeBody decodes a JSON request body into v with a size limit.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status serves the engine status snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Status snapshot failed")
		respondError(w, http.StatusInternalServerError, "STATUS_FAILED", "failed to assemble engine status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// TriggerPull runs an immediate reservation pull.
func (h *Handler) TriggerPull(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.PullReservations(r.Context())
	if err != nil {
		h.respondSyncError(w, "reservation pull", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PushAvailability pushes an availability batch to the channel.
func (h *Handler) PushAvailability(w http.ResponseWriter, r *http.Request) {
	var updates []models.AvailabilityUpdate
	if err := decodeBody(w, r, &updates); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "at least one availability update is required")
		return
	}
	result, err := h.engine.PushAvailability(r.Context(), updates)
	if err != nil {
		h.respondSyncError(w, "availability push", err)
		return
	}
	writeJSON(w, statusForBatch(result), result)
}

// PushRates pushes a rate batch to the channel.
func (h *Handler) PushRates(w http.ResponseWriter, r *http.Request) {
	var updates []models.RateUpdate
	if err := decodeBody(w, r, &updates); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "at least one rate update is required")
		return
	}
	result, err := h.engine.PushRates(r.Context(), updates)
	if err != nil {
		h.respondSyncError(w, "rate push", err)
		return
	}
	writeJSON(w, statusForBatch(result), result)
}

// PushReservations pushes a reservation batch to the channel.
func (h *Handler) PushReservations(w http.ResponseWriter, r *http.Request) {
	var reservations []*models.Reservation
	if err := decodeBody(w, r, &reservations); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(reservations) == 0 {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "at least one reservation is required")
		return
	}
	result, err := h.engine.PushReservations(r.Context(), reservations)
	if err != nil {
		h.respondSyncError(w, "reservation push", err)
		return
	}
	writeJSON(w, statusForBatch(result), result)
}

// statusForBatch maps a finished batch to an HTTP status: 200 when
// everything landed, 207 on partial failure, 502 when nothing did.
func statusForBatch(result *models.BatchResult) int {
	switch {
	case result.RecordsFailed == 0:
		return http.StatusOK
	case result.RecordsSuccessful > 0:
		return http.StatusMultiStatus
	default:
		return http.StatusBadGateway
	}
}

// Conflicts lists conflicts; ?active=false includes resolved ones.
func (h *Handler) Conflicts(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if v := r.URL.Query().Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "active must be true or false")
			return
		}
		activeOnly = parsed
	}
	conflicts, err := h.engine.Conflicts(r.Context(), activeOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("Conflict listing failed")
		respondError(w, http.StatusInternalServerError, "LIST_FAILED", "failed to list conflicts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conflicts": conflicts, "count": len(conflicts)})
}

// resolveRequest is the manual conflict resolution body.
type resolveRequest struct {
	Resolution string `json:"resolution"`
}

// ResolveConflict applies a manual resolution to an escalated conflict.
func (h *Handler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid conflict id")
		return
	}
	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if req.Resolution == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "resolution is required")
		return
	}

	resolved, err := h.engine.ResolveConflict(r.Context(), id, req.Resolution)
	switch {
	case errors.Is(err, syncengine.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "conflict not found")
		return
	case err != nil:
		respondError(w, http.StatusConflict, "NOT_RESOLVABLE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// Traces serves recent operation traces; ?limit= caps the count.
func (h *Handler) Traces(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	traces := h.engine.RecentTraces(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{"traces": traces, "count": len(traces)})
}

// Webhook receives Phobs event notifications. The signature is verified
// over the raw body before anything is decoded.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		return
	}

	if !syncengine.VerifySignature(h.webhookSecret, body, r.Header.Get(SignatureHeader)) {
		metrics.WebhookSignatureFailures.Inc()
		h.log.Warn().Str("remote", r.RemoteAddr).Msg("Webhook signature rejected")
		respondError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook signature verification failed")
		return
	}

	var ev syncengine.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid webhook payload")
		return
	}

	result, err := h.engine.ProcessWebhook(r.Context(), &ev)
	switch result {
	case syncengine.WebhookProcessed, syncengine.WebhookDuplicate:
		writeJSON(w, http.StatusOK, map[string]string{"result": result})
	case syncengine.WebhookRejected:
		respondError(w, http.StatusBadRequest, "REJECTED", err.Error())
	default:
		h.log.Error().Err(err).Str("event", ev.ID).Msg("Webhook processing failed")
		respondError(w, http.StatusInternalServerError, "PROCESSING_FAILED", "webhook processing failed")
	}
}

// respondSyncError maps engine errors to HTTP statuses.
func (h *Handler) respondSyncError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, syncengine.ErrSyncInFlight):
		respondError(w, http.StatusConflict, "SYNC_IN_FLIGHT",
			fmt.Sprintf("%s rejected: a batch of this kind is already running", operation))
	case errors.Is(err, phobs.ErrCircuitOpen):
		w.Header().Set("Retry-After", strconv.Itoa(int((30 * time.Second).Seconds())))
		respondError(w, http.StatusServiceUnavailable, "CIRCUIT_OPEN",
			fmt.Sprintf("%s rejected: channel manager circuit breaker is open", operation))
	default:
		h.log.Error().Err(err).Str("operation", operation).Msg("Sync operation failed")
		respondError(w, http.StatusBadGateway, "SYNC_FAILED", fmt.Sprintf("%s failed: %v", operation, err))
	}
}
