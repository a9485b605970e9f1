// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package supervisor builds the suture supervision tree that keeps the
// sync orchestrator and the HTTP server running, restarting either
// independently on failure.
package supervisor
