// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTokenField is the form field Cloudflare Turnstile fills in.
const DefaultTokenField = "cf-turnstile-response"

// Relay delivers a submission to wherever contact messages end up.
type Relay interface {
	Deliver(ctx context.Context, sub Submission) error
}

// RelayFunc adapts a function to the Relay interface.
type RelayFunc func(ctx context.Context, sub Submission) error

// Deliver calls f.
func (f RelayFunc) Deliver(ctx context.Context, sub Submission) error {
	return f(ctx, sub)
}

// HTTPRelay posts submissions form-encoded to a third-party form relay.
type HTTPRelay struct {
	client     *http.Client
	endpoint   string
	tokenField string
	timeout    time.Duration
}

// HTTPRelayOption configures an HTTPRelay.
type HTTPRelayOption func(*HTTPRelay)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPRelayOption {
	return func(r *HTTPRelay) { r.client = c }
}

// WithTokenField sets the form field carrying the verification token.
func WithTokenField(name string) HTTPRelayOption {
	return func(r *HTTPRelay) {
		if name != "" {
			r.tokenField = name
		}
	}
}

// WithTimeout bounds a single delivery. Zero means no extra timeout.
func WithTimeout(d time.Duration) HTTPRelayOption {
	return func(r *HTTPRelay) { r.timeout = d }
}

// NewHTTPRelay creates a relay for the given endpoint URL.
func NewHTTPRelay(endpoint string, opts ...HTTPRelayOption) (*HTTPRelay, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid relay endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid relay endpoint %q: scheme must be http or https", endpoint)
	}

	r := &HTTPRelay{
		client:     http.DefaultClient,
		endpoint:   endpoint,
		tokenField: DefaultTokenField,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Endpoint returns the configured endpoint URL.
func (r *HTTPRelay) Endpoint() string {
	return r.endpoint
}

// Deliver sends the submission. Any 2xx response is success.
func (r *HTTPRelay) Deliver(ctx context.Context, sub Submission) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set(FieldName, sub.Name)
	form.Set(FieldSubject, sub.Subject)
	form.Set(FieldEmail, sub.Email)
	form.Set(FieldMessage, sub.Message)
	form.Set(r.tokenField, sub.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectionError{StatusCode: resp.StatusCode}
	}
	return nil
}
