// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	// WebhookRateLimit requests per WebhookRateWindow per source IP on the
	// webhook endpoint. Defaults: 60 per minute.
	WebhookRateLimit  int
	WebhookRateWindow time.Duration
}

// NewRouter assembles the Chi router for the engine.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.WebhookRateLimit <= 0 {
		cfg.WebhookRateLimit = 60
	}
	if cfg.WebhookRateWindow <= 0 {
		cfg.WebhookRateWindow = time.Minute
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Webhooks carry their own authentication (body signature); the
		// rate limit keeps a misbehaving sender from flooding the engine.
		r.With(httprate.Limit(
			cfg.WebhookRateLimit,
			cfg.WebhookRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		)).Post("/webhooks/phobs", h.Webhook)

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", h.Status)
			r.Get("/traces", h.Traces)

			r.Post("/pull", h.TriggerPull)
			r.Post("/availability", h.PushAvailability)
			r.Post("/rates", h.PushRates)
			r.Post("/reservations", h.PushReservations)

			r.Route("/conflicts", func(r chi.Router) {
				r.Get("/", h.Conflicts)
				r.Post("/{id}/resolve", h.ResolveConflict)
			})
		})
	})

	return r
}
