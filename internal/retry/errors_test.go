// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// timeoutNetError fakes a net.Error.
type timeoutNetError struct {
	timeout bool
}

func (e *timeoutNetError) Error() string   { return "dial tcp: i/o timeout" }
func (e *timeoutNetError) Timeout() bool   { return e.timeout }
func (e *timeoutNetError) Temporary() bool { return true }

func TestClassifyHTTPStatuses(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
	}{
		{400, KindValid, false},
		{401, KindAuth, false},
		{403, KindAuth, false},
		{404, KindNotFound, false},
		{408, KindTimeout, true},
		{409, KindConflict, false},
		{429, KindRateLimit, true},
		{500, KindServer, true},
		{502, KindServer, true},
		{503, KindServer, true},
		{418, KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			ce := Classify("push", 1, &HTTPError{StatusCode: tt.status, Endpoint: "/ota"})
			if ce.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", ce.Kind, tt.kind)
			}
			if ce.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", ce.Retryable, tt.retryable)
			}
			if ce.HTTPStatus != tt.status || ce.Endpoint != "/ota" {
				t.Errorf("context not carried: %+v", ce)
			}
		})
	}
}

func TestClassifyNonHTTPFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout, true},
		{"net timeout", &timeoutNetError{timeout: true}, KindTimeout, true},
		{"net failure", &timeoutNetError{timeout: false}, KindNetwork, true},
		{"plain error", errors.New("something odd"), KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify("pull", 2, tt.err)
			if ce.Kind != tt.kind || ce.Retryable != tt.retryable {
				t.Errorf("got %q/%v, want %q/%v", ce.Kind, ce.Retryable, tt.kind, tt.retryable)
			}
			if ce.Attempt != 2 || ce.Operation != "pull" {
				t.Errorf("attempt context lost: %+v", ce)
			}
		})
	}
}

func TestClassifyIsStable(t *testing.T) {
	raw := &HTTPError{StatusCode: 503, Endpoint: "/ota"}
	first := Classify("push", 1, raw)
	second := Classify("push", 5, raw)
	if first.Kind != second.Kind || first.Retryable != second.Retryable {
		t.Errorf("same input classified differently: %+v vs %+v", first, second)
	}
}

func TestClassifyPreservesWrappedClassification(t *testing.T) {
	inner := Classify("push", 1, &HTTPError{StatusCode: 429, Endpoint: "/ota"})
	wrapped := fmt.Errorf("batch 7: %w", inner)

	ce := Classify("push", 3, wrapped)
	if ce.Kind != KindRateLimit || ce.HTTPStatus != 429 || ce.Endpoint != "/ota" {
		t.Errorf("classification not preserved: %+v", ce)
	}
	if ce.Attempt != 3 {
		t.Errorf("attempt = %d, want re-stamped 3", ce.Attempt)
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	raw := &HTTPError{StatusCode: 404, Endpoint: "/ota"}
	ce := Classify("pull", 1, raw)

	var httpErr *HTTPError
	if !errors.As(ce, &httpErr) || httpErr.StatusCode != 404 {
		t.Errorf("cause not reachable through Unwrap: %v", ce)
	}
}

func TestPolicyValidate(t *testing.T) {
	valid := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, AttemptTimeout: time.Second}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid policy rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero attempts", func(p *Policy) { p.MaxAttempts = 0 }},
		{"zero base delay", func(p *Policy) { p.BaseDelay = 0 }},
		{"multiplier below one", func(p *Policy) { p.Multiplier = 0.5 }},
		{"zero attempt timeout", func(p *Policy) { p.AttemptTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate must reject")
			}
		})
	}
}
