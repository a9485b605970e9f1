// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package sync is the orchestrator: outbound push batches, the periodic
// three-step inbound pull, webhook ingestion with signature verification
// and deduplication, conflict detection and resolution, and the status
// snapshot served by the API. One batch per entity kind runs at a time.
package sync
