// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package htmx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/portfolio/internal/htmx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_HtmxRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")

	parsed := htmx.ParseRequest(req)

	assert.True(t, parsed.IsHtmx)
}

func TestParseRequest_NonHtmxRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	parsed := htmx.ParseRequest(req)

	assert.False(t, parsed.IsHtmx)
}

func TestParseRequest_AllHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Boosted", "true")
	req.Header.Set("HX-Current-URL", "http://example.com/page")
	req.Header.Set("HX-History-Restore-Request", "true")
	req.Header.Set("HX-Target", "target-id")
	req.Header.Set("HX-Trigger", "trigger-id")
	req.Header.Set("HX-Trigger-Name", "trigger-name")

	parsed := htmx.ParseRequest(req)

	assert.True(t, parsed.IsHtmx)
	assert.True(t, parsed.IsBoosted)
	assert.Equal(t, "http://example.com/page", parsed.CurrentURL)
	assert.True(t, parsed.IsHistoryRestore)
	assert.Equal(t, "target-id", parsed.Target)
	assert.Equal(t, "trigger-id", parsed.Trigger)
	assert.Equal(t, "trigger-name", parsed.TriggerName)
}

func TestParseRequest_BoostedNotHtmx(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Boosted", "true")

	parsed := htmx.ParseRequest(req)

	assert.False(t, parsed.IsHtmx)
	assert.True(t, parsed.IsBoosted)
}

func TestParseRequest_FalseValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "false")
	req.Header.Set("HX-Boosted", "false")

	parsed := htmx.ParseRequest(req)

	assert.False(t, parsed.IsHtmx)
	assert.False(t, parsed.IsBoosted)
}

func TestWantsPartial(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"plain request", nil, false},
		{"htmx request", map[string]string{"HX-Request": "true"}, true},
		{"boosted navigation", map[string]string{"HX-Request": "true", "HX-Boosted": "true"}, false},
		{"history restore", map[string]string{"HX-Request": "true", "HX-History-Restore-Request": "true"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, htmx.ParseRequest(req).WantsPartial())
		})
	}
}

func TestWantsPartial_NilRequest(t *testing.T) {
	var r *htmx.Request

	assert.False(t, r.WantsPartial())
}

func TestResponseHeaders(t *testing.T) {
	h := http.Header{}

	htmx.Redirect(h, "/#contact")
	htmx.Retarget(h, "#contact-status", "outerHTML")

	assert.Equal(t, "/#contact", h.Get("HX-Redirect"))
	assert.Equal(t, "#contact-status", h.Get("HX-Retarget"))
	assert.Equal(t, "outerHTML", h.Get("HX-Reswap"))
}

func TestTrigger(t *testing.T) {
	h := http.Header{}
	require.NoError(t, htmx.Trigger(h, "contact-sent", nil))
	assert.Equal(t, "contact-sent", h.Get("HX-Trigger"))

	require.NoError(t, htmx.Trigger(h, "contact-failed", map[string]int{"status": 500}))
	assert.JSONEq(t, `{"contact-failed": {"status": 500}}`, h.Get("HX-Trigger"))
}
