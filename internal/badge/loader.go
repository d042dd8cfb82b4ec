// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package badge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBytes caps the size of a fetched badge payload.
const DefaultMaxBytes = 256 << 10

// ErrPayloadTooLarge is wrapped in a FetchError when the payload exceeds
// the configured size.
var ErrPayloadTooLarge = errors.New("badge payload too large")

// FetchError reports a failure to obtain the badge payload.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching badge %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching badge %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves a badge script payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches badge payloads over HTTP.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher. A nil client uses one with a 10s timeout;
// maxBytes <= 0 uses DefaultMaxBytes.
func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/javascript, text/javascript, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return "", &FetchError{URL: url, Err: ErrPayloadTooLarge}
	}
	return string(body), nil
}

// Loader turns a badge script URL into sanitized markup.
type Loader struct {
	fetcher Fetcher
}

// NewLoader creates a loader using fetcher.
func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load fetches the payload, evaluates it into a private capture and
// sanitizes the result. The returned markup is either complete or absent.
func (l *Loader) Load(ctx context.Context, url string) (Markup, error) {
	payload, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	var capture Capture
	if err := Evaluate(payload, &capture); err != nil {
		return "", err
	}
	if capture.Len() == 0 {
		return "", nil
	}
	return Sanitize(string(capture.Markup()))
}
