// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package phobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/retry"
)

// ErrCircuitOpen is returned when the breaker rejects a request without
// dispatching it.
var ErrCircuitOpen = errors.New("phobs circuit breaker open")

// BreakerConfig tunes the circuit breaker around the Phobs transport.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open. Default: 3.
	MaxRequests uint32

	// Interval over which closed-state counts are reset. Default: 60s.
	Interval time.Duration

	// Timeout before an open breaker transitions to half-open. Default: 30s.
	Timeout time.Duration

	// MinRequests before the failure ratio is evaluated. Default: 10.
	MinRequests uint32

	// FailureRatio at which the breaker trips. Default: 0.6.
	FailureRatio float64
}

func (c *BreakerConfig) applyDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 3
	}
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MinRequests == 0 {
		c.MinRequests = 10
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.6
	}
}

// BreakerClient wraps a Sender with a circuit breaker so a struggling
// channel manager sheds load instead of absorbing every retry. Client
// errors (4xx other than 429) do not count as breaker failures; repeating
// a bad request tells us nothing about remote health.
type BreakerClient struct {
	name  string
	inner Sender
	cb    *gobreaker.CircuitBreaker[*ParsedResult]
}

// NewBreakerClient wraps inner with a named circuit breaker.
func NewBreakerClient(name string, inner Sender, cfg BreakerConfig) *BreakerClient {
	cfg.applyDefaults()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var httpErr *retry.HTTPError
			if errors.As(err, &httpErr) {
				code := httpErr.StatusCode
				return code < 500 && code != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(gobreaker.StateClosed))
	return &BreakerClient{
		name:  name,
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*ParsedResult](settings),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// Send dispatches through the breaker. An open breaker rejects without
// touching the network.
func (b *BreakerClient) Send(ctx context.Context, req *WireRequest) (*ParsedResult, error) {
	result, err := b.cb.Execute(func() (*ParsedResult, error) {
		return b.inner.Send(ctx, req)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, req.Kind)
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return result, nil
	}
}

// State exposes the current breaker state for status reporting.
func (b *BreakerClient) State() string { return b.cb.State().String() }
