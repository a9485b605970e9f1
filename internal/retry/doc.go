// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package retry classifies remote failures into a fixed taxonomy and
// executes operations with bounded, jittered exponential-backoff retries.
// It is the single point in the engine where transient failures are
// absorbed; exhausted or non-retryable failures surface as typed
// ClassifiedError values, never as silently swallowed errors.
package retry
