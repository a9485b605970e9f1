// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package phobs is the protocol adapter for the Phobs channel manager.
// It builds outbound OTA 2003/05 SOAP envelopes, parses inbound
// responses into a uniform result shape, and owns the HTTP transport
// (bearer auth with transparent refresh, rate limiting, circuit
// breaking). Nothing outside this package touches XML or the wire.
package phobs
