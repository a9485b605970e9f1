// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package telemetry observes the sync engine: a bounded monitor of
// retry attempts and per-operation aggregates, alert rules with
// cooldown, and per-operation traces. Everything here is in-memory,
// bounded, and advisory; losing telemetry never fails a sync.
package telemetry
