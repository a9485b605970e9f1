// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package config loads and validates engine configuration with Koanf,
// layering environment variables over an optional YAML file over built-in
// defaults. Phobs credentials and the channel code are the only required
// settings.
package config
