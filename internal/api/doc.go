// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package api serves the engine's HTTP surface: the signed Phobs webhook
// endpoint, manual sync triggers, status and conflict management, and
// Prometheus metrics.
package api
