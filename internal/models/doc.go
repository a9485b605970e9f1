// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package models defines the domain entities shared across the sync engine:
// identifier newtypes for the internal and external id spaces, reservation
// snapshots, inventory updates, sync bookkeeping records, and conflict
// records.
//
// The package is intentionally free of behavior beyond small accessors and
// invariant checks. All lifecycle mutation of SyncRecord and ConflictRecord
// happens in the orchestrator (internal/sync), which is their sole owner.
package models
