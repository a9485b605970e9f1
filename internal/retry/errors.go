// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind is the classified error taxonomy. Retryability is a fixed function
// of the kind; re-classifying the same raw error always yields the same
// result.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindAuth      Kind = "authentication"
	KindRateLimit Kind = "rate_limit"
	KindValid     Kind = "validation"
	KindServer    Kind = "server"
	KindTimeout   Kind = "timeout"
	KindConflict  Kind = "conflict"
	KindNotFound  Kind = "not_found"
	KindUnknown   Kind = "unknown"
)

// retryableByKind is the fixed retryability policy table. Validation,
// authentication, not-found and conflict failures are never retried;
// repeating them cannot change the outcome.
var retryableByKind = map[Kind]bool{
	KindNetwork:   true,
	KindAuth:      false,
	KindRateLimit: true,
	KindValid:     false,
	KindServer:    true,
	KindTimeout:   true,
	KindConflict:  false,
	KindNotFound:  false,
	KindUnknown:   false,
}

// Retryable reports the fixed retryability of a kind.
func (k Kind) Retryable() bool { return retryableByKind[k] }

// HTTPError carries a non-2xx response from the channel manager. The Phobs
// client returns it so the classifier can map the status code to a kind.
type HTTPError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("phobs returned status %d for %s", e.StatusCode, e.Endpoint)
}

// ClassifiedError is a raw failure mapped into the taxonomy, with the
// attempt context attached. Immutable once constructed.
type ClassifiedError struct {
	Kind       Kind
	HTTPStatus int
	Retryable  bool
	Operation  string
	Attempt    int
	Endpoint   string
	At         time.Time
	Cause      error
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s, attempt %d): %v", e.Operation, e.Kind, e.Attempt, e.Cause)
	}
	return fmt.Sprintf("%s (%s, attempt %d)", e.Operation, e.Kind, e.Attempt)
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// kindForStatus is the fixed HTTP status classification table.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindValid
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// Classify maps a raw failure to a ClassifiedError. Classification is a
// pure function of the failure shape; anything unrecognizable classifies
// as unknown and non-retryable, the conservative default that avoids
// retry storms on unclassifiable input.
func Classify(operation string, attempt int, err error) *ClassifiedError {
	ce := &ClassifiedError{
		Operation: operation,
		Attempt:   attempt,
		At:        time.Now().UTC(),
		Cause:     err,
	}

	var already *ClassifiedError
	var httpErr *HTTPError
	var netErr net.Error

	switch {
	case errors.As(err, &already):
		// Preserve the original classification; only the context changes.
		ce.Kind = already.Kind
		ce.HTTPStatus = already.HTTPStatus
		ce.Endpoint = already.Endpoint
	case errors.As(err, &httpErr):
		ce.Kind = kindForStatus(httpErr.StatusCode)
		ce.HTTPStatus = httpErr.StatusCode
		ce.Endpoint = httpErr.Endpoint
	case errors.Is(err, context.DeadlineExceeded):
		ce.Kind = KindTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			ce.Kind = KindTimeout
		} else {
			ce.Kind = KindNetwork
		}
	default:
		ce.Kind = KindUnknown
	}

	ce.Retryable = ce.Kind.Retryable()
	return ce
}
