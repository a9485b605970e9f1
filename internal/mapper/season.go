// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package mapper

import "time"

// Season buckets the calendar for seasonal rate adjustment. The boundaries
// follow the Adriatic coast pattern: peak summer, the shoulder months
// around it, and the winter low season.
type Season string

const (
	SeasonLow  Season = "low"  // November through March
	SeasonMid  Season = "mid"  // April, May, October
	SeasonHigh Season = "high" // June through September
)

// SeasonFor returns the season bucket for a date.
func SeasonFor(t time.Time) Season {
	switch t.Month() {
	case time.June, time.July, time.August, time.September:
		return SeasonHigh
	case time.April, time.May, time.October:
		return SeasonMid
	default:
		return SeasonLow
	}
}

// DefaultSeasonFactors is the fallback seasonal multiplier table applied
// to outbound rates when no factors are configured.
var DefaultSeasonFactors = map[Season]float64{
	SeasonLow:  0.80,
	SeasonMid:  1.00,
	SeasonHigh: 1.25,
}
