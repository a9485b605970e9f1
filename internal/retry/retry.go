// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
retry.go - Bounded Retry Engine

The retry engine is the single point where transient failures against the
channel manager are absorbed. Every attempt runs under its own timeout;
failures are classified into the taxonomy in errors.go and retried with
jittered exponential backoff only while the classified kind is retryable.

Backoff for attempt k:

	delay = min(maxDelay, baseDelay * multiplier^(k-1)) * uniform(0.5, 1.0)

The multiplicative jitter spreads simultaneously-retrying operations so
they do not hammer the remote in lockstep after an outage.
*/

package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/metrics"
)

// Policy configures the retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Must be >= 1.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the un-jittered backoff.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// AttemptTimeout bounds each individual attempt. When the attempt does
	// not settle in time it is classified as a timeout failure; the
	// attempt's context is cancelled but the engine does not wait for the
	// underlying call to unwind.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the production default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		AttemptTimeout: 30 * time.Second,
	}
}

// Validate checks the policy for degenerate values.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry policy: base delay must be positive, got %s", p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry policy: multiplier must be >= 1, got %g", p.Multiplier)
	}
	if p.AttemptTimeout <= 0 {
		return fmt.Errorf("retry policy: attempt timeout must be positive, got %s", p.AttemptTimeout)
	}
	return nil
}

// Outcome reports the result of a retried operation.
type Outcome struct {
	Success       bool
	Err           *ClassifiedError
	Attempts      int
	TotalDuration time.Duration
	WasRetried    bool
}

// Monitor receives per-attempt and terminal notifications from the engine.
// Implemented by telemetry.Monitor; a no-op implementation is used when no
// monitor is wired.
type Monitor interface {
	RecordAttempt(operation string, attempt int, duration time.Duration, cerr *ClassifiedError)
	NotifyRetrying(operation string, attempt int, delay time.Duration, cerr *ClassifiedError)
	NotifyOutcome(operation string, outcome Outcome)
}

type nopMonitor struct{}

func (nopMonitor) RecordAttempt(string, int, time.Duration, *ClassifiedError)  {}
func (nopMonitor) NotifyRetrying(string, int, time.Duration, *ClassifiedError) {}
func (nopMonitor) NotifyOutcome(string, Outcome)                               {}

// Engine executes operations under the retry policy.
type Engine struct {
	policy  Policy
	monitor Monitor

	// Injection points for deterministic tests.
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	randFloat func() float64
}

// NewEngine creates a retry engine. The monitor may be nil.
func NewEngine(policy Policy, monitor Monitor) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = nopMonitor{}
	}
	return &Engine{
		policy:    policy,
		monitor:   monitor,
		sleep:     sleepCtx,
		now:       time.Now,
		randFloat: rand.Float64,
	}, nil
}

// Policy returns the engine's configured policy.
func (e *Engine) Policy() Policy { return e.policy }

// WithMonitor returns a copy of the engine reporting to monitor instead of
// the one given at construction. Policy and clock are shared; callers use
// this to observe a single operation's attempts and retries.
func (e *Engine) WithMonitor(monitor Monitor) *Engine {
	if monitor == nil {
		return e
	}
	clone := *e
	clone.monitor = monitor
	return &clone
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoffDelay computes the jittered delay before attempt+1. attempt is
// 1-based (the attempt that just failed).
func (e *Engine) backoffDelay(attempt int) time.Duration {
	raw := float64(e.policy.BaseDelay) * math.Pow(e.policy.Multiplier, float64(attempt-1))
	capped := math.Min(raw, float64(e.policy.MaxDelay))
	jitter := 0.5 + 0.5*e.randFloat() // uniform(0.5, 1.0)
	return time.Duration(capped * jitter)
}

// runAttempt executes fn once under the per-attempt timeout. A timed-out
// attempt is abandoned: its context is cancelled, but the slow call keeps
// running until the transport notices.
func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(attemptCtx)
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-attemptCtx.Done():
		var zero T
		return zero, attemptCtx.Err()
	}
}

// Do executes fn under the engine's policy and returns its value with the
// retry outcome. Retries happen only while the classified error is
// retryable and attempts remain; non-retryable failures fail fast after
// the first attempt.
func Do[T any](ctx context.Context, e *Engine, operation string, fn func(context.Context) (T, error)) (T, Outcome) {
	var zero T
	start := e.now()

	var lastErr *ClassifiedError
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = Classify(operation, attempt, err)
			break
		}

		attemptStart := e.now()
		value, err := runAttempt(ctx, e.policy.AttemptTimeout, fn)
		attemptDur := e.now().Sub(attemptStart)

		if err == nil {
			e.monitor.RecordAttempt(operation, attempt, attemptDur, nil)
			metrics.RecordAttempt(operation, true, "")
			outcome := Outcome{
				Success:       true,
				Attempts:      attempt,
				TotalDuration: e.now().Sub(start),
				WasRetried:    attempt > 1,
			}
			e.monitor.NotifyOutcome(operation, outcome)
			return value, outcome
		}

		lastErr = Classify(operation, attempt, err)
		e.monitor.RecordAttempt(operation, attempt, attemptDur, lastErr)
		metrics.RecordAttempt(operation, false, string(lastErr.Kind))

		if !lastErr.Retryable || attempt == e.policy.MaxAttempts {
			break
		}

		delay := e.backoffDelay(attempt)
		e.monitor.NotifyRetrying(operation, attempt, delay, lastErr)
		logging.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", e.policy.MaxAttempts).
			Dur("delay", delay).
			Str("kind", string(lastErr.Kind)).
			Err(lastErr.Cause).
			Msg("Retrying after failure")

		if err := e.sleep(ctx, delay); err != nil {
			lastErr = Classify(operation, attempt, err)
			break
		}
	}

	if lastErr != nil && !errors.Is(lastErr.Cause, context.Canceled) {
		metrics.RetryExhausted.WithLabelValues(operation).Inc()
	}
	outcome := Outcome{
		Success:       false,
		Err:           lastErr,
		Attempts:      attemptsFrom(lastErr),
		TotalDuration: e.now().Sub(start),
	}
	outcome.WasRetried = outcome.Attempts > 1
	e.monitor.NotifyOutcome(operation, outcome)
	return zero, outcome
}

func attemptsFrom(cerr *ClassifiedError) int {
	if cerr == nil {
		return 0
	}
	return cerr.Attempt
}
