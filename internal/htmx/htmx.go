// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package htmx provides types and helpers for htmx integration.
package htmx

import (
	"encoding/json"
	"net/http"
)

// Request headers sent by htmx.
const (
	HeaderRequest        = "HX-Request"
	HeaderBoosted        = "HX-Boosted"
	HeaderCurrentURL     = "HX-Current-URL"
	HeaderHistoryRestore = "HX-History-Restore-Request"
	HeaderTarget         = "HX-Target"
	HeaderTrigger        = "HX-Trigger"
	HeaderTriggerName    = "HX-Trigger-Name"
)

// Response headers understood by htmx.
const (
	HeaderRedirect        = "HX-Redirect"
	HeaderReswap          = "HX-Reswap"
	HeaderRetarget        = "HX-Retarget"
	HeaderTriggerResponse = "HX-Trigger"
)

// Request contains information about an htmx request.
type Request struct { //nolint:govet // fieldalignment not critical
	// IsHtmx is true if the HX-Request header is "true".
	IsHtmx bool

	// IsBoosted is true for hx-boost navigation.
	IsBoosted bool

	CurrentURL string

	// IsHistoryRestore is true when htmx restores a page from history
	// and needs the full document.
	IsHistoryRestore bool

	Target      string
	Trigger     string
	TriggerName string
}

// ParseRequest extracts htmx information from request headers.
func ParseRequest(r *http.Request) *Request {
	return &Request{
		IsHtmx:           r.Header.Get(HeaderRequest) == "true",
		IsBoosted:        r.Header.Get(HeaderBoosted) == "true",
		CurrentURL:       r.Header.Get(HeaderCurrentURL),
		IsHistoryRestore: r.Header.Get(HeaderHistoryRestore) == "true",
		Target:           r.Header.Get(HeaderTarget),
		Trigger:          r.Header.Get(HeaderTrigger),
		TriggerName:      r.Header.Get(HeaderTriggerName),
	}
}

// WantsPartial reports whether the response should be a fragment rather
// than a full page.
func (r *Request) WantsPartial() bool {
	return r != nil && r.IsHtmx && !r.IsBoosted && !r.IsHistoryRestore
}

// Redirect tells htmx to do a full page navigation to url.
func Redirect(h http.Header, url string) {
	h.Set(HeaderRedirect, url)
}

// Retarget swaps the response into selector instead of the request target.
func Retarget(h http.Header, selector, swap string) {
	h.Set(HeaderRetarget, selector)
	if swap != "" {
		h.Set(HeaderReswap, swap)
	}
}

// Trigger fires a client side event named event with an optional detail.
func Trigger(h http.Header, event string, detail any) error {
	if detail == nil {
		h.Set(HeaderTriggerResponse, event)
		return nil
	}
	b, err := json.Marshal(map[string]any{event: detail})
	if err != nil {
		return err
	}
	h.Set(HeaderTriggerResponse, string(b))
	return nil
}
