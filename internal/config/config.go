// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package config

import (
	"time"

	"github.com/adriatichotels/channelbridge/internal/telemetry"
)

// Config holds all engine configuration, loaded in layers:
//
//  1. Defaults: built-in values for everything optional
//  2. Config file: optional YAML file (config.yaml)
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Phobs     PhobsConfig     `koanf:"phobs"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Retry     RetryConfig     `koanf:"retry"`
	Mapping   MappingConfig   `koanf:"mapping"`
	Sync      SyncConfig      `koanf:"sync"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// PhobsConfig holds the channel manager connection settings.
//
// Environment Variables:
//   - PHOBS_BASE_URL: Phobs endpoint base URL (required)
//   - PHOBS_API_KEY / PHOBS_SECRET_KEY: credentials (required)
//   - PHOBS_HOTEL_ID: property code registered with Phobs (required)
type PhobsConfig struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	APIKey    string `koanf:"api_key" validate:"required"`
	SecretKey string `koanf:"secret_key" validate:"required"`
	HotelID   string `koanf:"hotel_id" validate:"required"`

	// Timeout bounds each HTTP exchange with Phobs.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond and Burst configure the client-side rate limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"gt=0"`
}

// BreakerConfig tunes the circuit breaker around the Phobs transport.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests" validate:"gt=0"`
	Interval     time.Duration `koanf:"interval" validate:"gt=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests" validate:"gt=0"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// RetryConfig tunes the backoff policy applied to every Phobs exchange.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `koanf:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `koanf:"max_delay" validate:"gt=0"`
	Multiplier  float64       `koanf:"multiplier" validate:"gte=1"`

	// AttemptTimeout bounds each individual attempt.
	AttemptTimeout time.Duration `koanf:"attempt_timeout" validate:"gt=0"`
}

// MappingConfig tunes the data mapper's financial tables.
type MappingConfig struct {
	// Commissions maps channel codes to commission rates (0..1).
	// Channels absent from the map use the built-in defaults, then
	// DefaultCommission.
	Commissions map[string]float64 `koanf:"commissions" validate:"dive,gte=0,lt=1"`

	DefaultCommission float64 `koanf:"default_commission" validate:"gte=0,lt=1"`

	// SeasonFactors multiplies outbound rates per season, keyed by
	// low, mid and high.
	SeasonFactors map[string]float64 `koanf:"season_factors" validate:"dive,gt=0"`

	// TaxRate is the VAT rate used to approximate the tax split on
	// channel totals that arrive without a breakdown.
	TaxRate float64 `koanf:"tax_rate" validate:"gte=0,lt=1"`
}

// SyncConfig tunes the orchestrator.
type SyncConfig struct {
	// Channel is the channel code this instance synchronizes with.
	Channel string `koanf:"channel" validate:"required"`

	// PullInterval is the cadence of the periodic reservation pull.
	PullInterval time.Duration `koanf:"pull_interval" validate:"gt=0"`

	// ConflictStrategy selects automatic conflict resolution:
	// manual, favor_internal or favor_channel.
	ConflictStrategy string `koanf:"conflict_strategy" validate:"oneof=manual favor_internal favor_channel"`

	// RateTolerance is the relative rate difference below which internal
	// and external rates count as equal.
	RateTolerance float64 `koanf:"rate_tolerance" validate:"gt=0,lt=1"`
}

// WebhookConfig secures the inbound webhook endpoint.
type WebhookConfig struct {
	// Secret signs inbound webhook bodies (HMAC-SHA256). Webhooks are
	// rejected when empty.
	Secret string `koanf:"secret"`

	// RateLimitReqs requests per RateLimitWindow per source IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gt=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// TelemetryConfig bounds retention of attempt history and traces.
type TelemetryConfig struct {
	MaxEntries int           `koanf:"max_entries" validate:"gt=0"`
	MaxAge     time.Duration `koanf:"max_age" validate:"gt=0"`
	MaxTraces  int           `koanf:"max_traces" validate:"gt=0"`

	// AlertRules evaluated after every pull cycle.
	AlertRules []telemetry.Rule `koanf:"alert_rules"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with every optional setting filled.
// Phobs credentials and the channel code have no defaults; Load fails
// validation without them.
func defaultConfig() *Config {
	return &Config{
		Phobs: PhobsConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Breaker: BreakerConfig{
			MaxRequests:  3,
			Interval:     60 * time.Second,
			Timeout:      30 * time.Second,
			MinRequests:  10,
			FailureRatio: 0.6,
		},
		Retry: RetryConfig{
			MaxAttempts:    5,
			BaseDelay:      time.Second,
			MaxDelay:       30 * time.Second,
			Multiplier:     2.0,
			AttemptTimeout: 30 * time.Second,
		},
		Mapping: MappingConfig{
			DefaultCommission: 0.15,
			TaxRate:           0.13,
		},
		Sync: SyncConfig{
			Channel:          "booking_com",
			PullInterval:     5 * time.Minute,
			ConflictStrategy: "manual",
			RateTolerance:    0.01,
		},
		Webhook: WebhookConfig{
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Telemetry: TelemetryConfig{
			MaxEntries: 1000,
			MaxAge:     time.Hour,
			MaxTraces:  200,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
