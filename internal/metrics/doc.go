// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package metrics exposes Prometheus instrumentation for the sync engine.
// Metric variables are registered at init via promauto; the Record*
// helpers are the only write surface other packages should use.
package metrics
