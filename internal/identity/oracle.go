// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package identity verifies federated sign-in credentials against a
// token-info endpoint.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// DefaultTimeout bounds one token-info request.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps the token-info body that is decoded.
const maxResponseBytes = 1 << 16

// HTTPOracle implements auth.IdentityOracle by POSTing the credential as the
// id_token form field to the token-info endpoint and reading the JSON claims.
// The credential stays out of the URL so proxies and access logs never see it.
type HTTPOracle struct {
	endpoint *url.URL
	audience string
	timeout  time.Duration
	client   *http.Client
}

// Option configures an HTTPOracle.
type Option func(*HTTPOracle)

// WithAudience rejects tokens whose aud claim differs from audience.
func WithAudience(audience string) Option {
	return func(o *HTTPOracle) { o.audience = audience }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *HTTPOracle) { o.timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *HTTPOracle) { o.client = c }
}

// NewHTTPOracle creates an oracle for the token-info endpoint.
func NewHTTPOracle(endpoint string, opts ...Option) (*HTTPOracle, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, oops.Code("CONFIG_INVALID").With("endpoint", endpoint).Errorf("identity endpoint must be an absolute http(s) url")
	}

	o := &HTTPOracle{endpoint: u, timeout: DefaultTimeout, client: http.DefaultClient}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeout <= 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("identity timeout must be positive")
	}
	return o, nil
}

// tokenInfo is the subset of claims read from the endpoint. Providers encode
// email_verified as either a JSON bool or a string.
type tokenInfo struct {
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	EmailVerified json.RawMessage `json:"email_verified"`
	Audience      string          `json:"aud"`
}

// Verify exchanges credential for the identity it asserts.
func (o *HTTPOracle) Verify(ctx context.Context, credential string) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	form := url.Values{"id_token": {credential}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, oops.Code("IDENTITY_UNAVAILABLE").With("operation", "build request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, auth.ErrIdentityTimeout
		}
		return nil, oops.Code("IDENTITY_UNAVAILABLE").With("operation", "request").Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, auth.ErrIdentityRejected
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, oops.Code("IDENTITY_UNAVAILABLE").With("status", resp.StatusCode).Errorf("unexpected token-info status %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&info); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, auth.ErrIdentityTimeout
		}
		return nil, oops.Code("IDENTITY_UNAVAILABLE").With("operation", "decode response").Wrap(err)
	}

	if emailUnverified(info.EmailVerified) {
		return nil, auth.ErrIdentityRejected
	}
	if o.audience != "" && info.Audience != o.audience {
		return nil, auth.ErrIdentityRejected
	}
	return &auth.Identity{Email: info.Email, Name: info.Name}, nil
}

func emailUnverified(raw json.RawMessage) bool {
	v := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return strings.EqualFold(v, "false")
}

var _ auth.IdentityOracle = (*HTTPOracle)(nil)
