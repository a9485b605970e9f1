// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
main.go - Engine Entry Point

Loads configuration, wires the Phobs transport, mapper, retry engine and
sync orchestrator together, and runs everything under the supervision
tree until SIGINT or SIGTERM.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adriatichotels/channelbridge/internal/api"
	"github.com/adriatichotels/channelbridge/internal/config"
	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/mapper"
	"github.com/adriatichotels/channelbridge/internal/models"
	"github.com/adriatichotels/channelbridge/internal/phobs"
	"github.com/adriatichotels/channelbridge/internal/retry"
	"github.com/adriatichotels/channelbridge/internal/supervisor"
	syncengine "github.com/adriatichotels/channelbridge/internal/sync"
	"github.com/adriatichotels/channelbridge/internal/telemetry"
)

var version = "dev" // set via -ldflags at build time

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("channel", cfg.Sync.Channel).
		Str("hotel", cfg.Phobs.HotelID).
		Msg("ChannelBridge starting")

	manager, err := buildEngine(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build sync engine")
	}

	handler := api.NewHandler(manager, cfg.Webhook.Secret)
	router := api.NewRouter(handler, api.RouterConfig{
		WebhookRateLimit:  cfg.Webhook.RateLimitReqs,
		WebhookRateWindow: cfg.Webhook.RateLimitWindow,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddSyncService(manager)
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("ChannelBridge stopped")
}

// buildEngine wires the sync orchestrator from configuration.
func buildEngine(cfg *config.Config) (*syncengine.Manager, error) {
	client, err := phobs.NewClient(phobs.ClientConfig{
		BaseURL:           cfg.Phobs.BaseURL,
		APIKey:            cfg.Phobs.APIKey,
		SecretKey:         cfg.Phobs.SecretKey,
		HotelID:           cfg.Phobs.HotelID,
		Timeout:           cfg.Phobs.Timeout,
		RequestsPerSecond: cfg.Phobs.RequestsPerSecond,
		Burst:             cfg.Phobs.Burst,
	})
	if err != nil {
		return nil, err
	}
	sender := phobs.NewBreakerClient("phobs", client, phobs.BreakerConfig{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
	})

	monitor := telemetry.NewMonitor(telemetry.MonitorConfig{
		MaxEntries: cfg.Telemetry.MaxEntries,
		MaxAge:     cfg.Telemetry.MaxAge,
	})
	tracer := telemetry.NewTracer(cfg.Telemetry.MaxTraces)
	alerter, err := telemetry.NewAlerter(cfg.Telemetry.AlertRules, nil)
	if err != nil {
		return nil, err
	}

	engine, err := retry.NewEngine(retry.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     cfg.Retry.Multiplier,
		AttemptTimeout: cfg.Retry.AttemptTimeout,
	}, monitor)
	if err != nil {
		return nil, err
	}

	return syncengine.NewManager(
		syncengine.Config{
			Channel:          models.ChannelCode(cfg.Sync.Channel),
			PullInterval:     cfg.Sync.PullInterval,
			ConflictStrategy: syncengine.Strategy(cfg.Sync.ConflictStrategy),
			RateTolerance:    cfg.Sync.RateTolerance,
		},
		syncengine.NewMemStore(),
		sender,
		phobs.NewRequestBuilder(cfg.Phobs.HotelID),
		mapper.New(mapperConfig(cfg)),
		engine,
		monitor,
		tracer,
		alerter,
	)
}

// mapperConfig converts the flat config tables to the mapper's typed keys.
func mapperConfig(cfg *config.Config) mapper.Config {
	mc := mapper.Config{
		DefaultCommission: cfg.Mapping.DefaultCommission,
		TaxRate:           cfg.Mapping.TaxRate,
	}
	if len(cfg.Mapping.Commissions) > 0 {
		mc.Commissions = make(map[models.ChannelCode]float64, len(cfg.Mapping.Commissions))
		for channel, rate := range cfg.Mapping.Commissions {
			mc.Commissions[models.ChannelCode(channel)] = rate
		}
	}
	if len(cfg.Mapping.SeasonFactors) > 0 {
		// Overlay on the defaults so a partial table keeps sane factors
		// for the seasons it does not name.
		mc.SeasonFactors = make(map[mapper.Season]float64, len(mapper.DefaultSeasonFactors))
		for season, factor := range mapper.DefaultSeasonFactors {
			mc.SeasonFactors[season] = factor
		}
		for season, factor := range cfg.Mapping.SeasonFactors {
			mc.SeasonFactors[mapper.Season(season)] = factor
		}
	}
	return mc
}
