// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package retry

import "time"

// Stats summarizes recent outcomes for one operation, as accumulated by
// the telemetry monitor.
type Stats struct {
	Total        int64
	Failures     int64
	SuccessRate  float64
	AvgDuration  time.Duration
	ErrorsByKind map[Kind]int64
}

// dominant reports whether kind accounts for more than half of all
// observed failures.
func (s Stats) dominant(kind Kind) bool {
	if s.Failures == 0 {
		return false
	}
	return float64(s.ErrorsByKind[kind])/float64(s.Failures) > 0.5
}

// Recommend derives an adjusted policy from recent operation stats. It is
// a pure function and purely advisory: the caller decides whether to apply
// the recommendation, the engine never adopts it on its own.
//
// Heuristics:
//   - rate-limit errors dominate: quadruple the base delay so backoff
//     starts beyond the remote's throttle window
//   - timeout errors dominate: give each attempt more room
//   - success rate below 20%: stop burning attempts against an endpoint
//     that is effectively down
func Recommend(current Policy, stats Stats) Policy {
	rec := current

	if stats.Total == 0 {
		return rec
	}

	if stats.dominant(KindRateLimit) {
		rec.BaseDelay = current.BaseDelay * 4
		if rec.BaseDelay > rec.MaxDelay {
			rec.BaseDelay = rec.MaxDelay
		}
	}

	if stats.dominant(KindTimeout) {
		rec.AttemptTimeout = current.AttemptTimeout * 2
	}

	if stats.SuccessRate < 0.2 && rec.MaxAttempts > 1 {
		rec.MaxAttempts = rec.MaxAttempts - 1
	}

	return rec
}
