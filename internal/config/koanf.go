// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/channelbridge/config.yaml",
	"/etc/channelbridge/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources with Koanf:
// defaults, then an optional YAML file, then environment variables.
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment variables have the highest priority. Only mapped names
	// are honored so unrelated variables cannot pollute the config.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first readable config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names to config paths. Underscores
// are ambiguous between section separators and key words, so every
// variable is mapped explicitly.
var envMappings = map[string]string{
	// Phobs connection
	"phobs_base_url":            "phobs.base_url",
	"phobs_api_key":             "phobs.api_key",
	"phobs_secret_key":          "phobs.secret_key",
	"phobs_hotel_id":            "phobs.hotel_id",
	"phobs_timeout":             "phobs.timeout",
	"phobs_requests_per_second": "phobs.requests_per_second",
	"phobs_burst":               "phobs.burst",

	// Circuit breaker
	"breaker_max_requests":  "breaker.max_requests",
	"breaker_interval":      "breaker.interval",
	"breaker_timeout":       "breaker.timeout",
	"breaker_min_requests":  "breaker.min_requests",
	"breaker_failure_ratio": "breaker.failure_ratio",

	// Retry policy
	"retry_max_attempts":    "retry.max_attempts",
	"retry_base_delay":      "retry.base_delay",
	"retry_max_delay":       "retry.max_delay",
	"retry_multiplier":      "retry.multiplier",
	"retry_attempt_timeout": "retry.attempt_timeout",

	// Mapping
	"mapping_default_commission": "mapping.default_commission",
	"mapping_tax_rate":           "mapping.tax_rate",

	// Sync orchestrator
	"sync_channel":           "sync.channel",
	"sync_pull_interval":     "sync.pull_interval",
	"sync_conflict_strategy": "sync.conflict_strategy",
	"sync_rate_tolerance":    "sync.rate_tolerance",

	// Webhooks
	"webhook_secret":            "webhook.secret",
	"webhook_rate_limit_reqs":   "webhook.rate_limit_reqs",
	"webhook_rate_limit_window": "webhook.rate_limit_window",

	// Telemetry retention
	"telemetry_max_entries": "telemetry.max_entries",
	"telemetry_max_age":     "telemetry.max_age",
	"telemetry_max_traces":  "telemetry.max_traces",

	// HTTP server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path,
// or "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
