// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

/*
client.go - Phobs HTTP Transport

The client owns the network conversation with the channel manager:
bearer-token authentication with transparent refresh, client-side rate
limiting, and translation of non-2xx responses into typed errors the
retry engine can classify. It performs exactly one re-authentication per
call when the remote rejects a token mid-flight; a second rejection
surfaces as an authentication failure.
*/

package phobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/adriatichotels/channelbridge/internal/logging"
	"github.com/adriatichotels/channelbridge/internal/metrics"
	"github.com/adriatichotels/channelbridge/internal/retry"
)

// tokenExpirySlack is subtracted from the advertised token lifetime so a
// token is refreshed before it expires on the remote side.
const tokenExpirySlack = 30 * time.Second

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Sender abstracts request dispatch so the circuit breaker can wrap the
// client and the orchestrator can be tested against a fake.
type Sender interface {
	Send(ctx context.Context, req *WireRequest) (*ParsedResult, error)
}

// ClientConfig configures the Phobs transport.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	HotelID   string

	// Timeout bounds each HTTP exchange. Default: 30s.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the client-side rate limiter.
	// Defaults: 5 rps, burst 10.
	RequestsPerSecond float64
	Burst             int
}

// Client is the HTTP transport for the Phobs channel manager.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Phobs transport client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("phobs client: base URL is required")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("phobs client: api key and secret key are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

type tokenRequest struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	HotelID   string `json:"hotel_id,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// authenticate obtains a fresh bearer token. Callers hold c.mu.
func (c *Client) authenticate(ctx context.Context, reason string) error {
	body, err := json.Marshal(tokenRequest{
		APIKey:    c.cfg.APIKey,
		SecretKey: c.cfg.SecretKey,
		HotelID:   c.cfg.HotelID,
	})
	if err != nil {
		return fmt.Errorf("phobs auth: encode token request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/auth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("phobs auth: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("phobs auth: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("phobs auth: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.HTTPError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: string(raw)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return fmt.Errorf("phobs auth: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("phobs auth: empty access token in response")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpirySlack)
	metrics.PhobsTokenRefreshes.WithLabelValues(reason).Inc()
	logging.Debug().Str("reason", reason).Time("expiry", c.tokenExpiry).
		Msg("Phobs bearer token refreshed")
	return nil
}

// bearer returns a valid token, refreshing it when expired or absent.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || time.Now().After(c.tokenExpiry) {
		if err := c.authenticate(ctx, "expiry"); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// invalidate drops the cached token and fetches a new one. Used after the
// remote rejects a token that looked valid locally.
func (c *Client) invalidate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	if err := c.authenticate(ctx, "auth_failure"); err != nil {
		return "", err
	}
	return c.token, nil
}

// Send dispatches one built request and parses the response. A 401 on a
// cached token triggers a single transparent re-authentication; every
// other non-2xx status surfaces as a typed HTTP error for classification.
func (c *Client) Send(ctx context.Context, req *WireRequest) (*ParsedResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("phobs send %s: %w", req.Kind, err)
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status, raw, err := c.post(ctx, req, token)
	if err == nil && status == http.StatusUnauthorized {
		token, err = c.invalidate(ctx)
		if err != nil {
			return nil, err
		}
		status, raw, err = c.post(ctx, req, token)
	}
	metrics.PhobsRequestDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	endpoint := c.endpoint()
	if status < 200 || status >= 300 {
		return nil, &retry.HTTPError{StatusCode: status, Endpoint: endpoint, Body: string(raw)}
	}

	result := ParseResponse(raw)
	logging.Debug().Str("kind", string(req.Kind)).Bool("success", result.Success).
		Int("errors", len(result.Errors)).Int("warnings", len(result.Warnings)).
		Dur("elapsed", time.Since(start)).Msg("Phobs request completed")
	return result, nil
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/ota"
}

func (c *Client) post(ctx context.Context, req *WireRequest, token string) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(req.Body))
	if err != nil {
		return 0, nil, fmt.Errorf("phobs send %s: %w", req.Kind, err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", req.SOAPAction)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("phobs send %s: %w", req.Kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("phobs send %s: read response: %w", req.Kind, err)
	}
	return resp.StatusCode, raw, nil
}
