// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

// Package mapper translates between the internal reservation/inventory
// model and the flat wire shape of the protocol adapter, both
// directions. It owns the code tables (room types, statuses, payment
// methods), the channel commission table and the seasonal rate factors.
package mapper
