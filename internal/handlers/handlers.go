// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/badge"
	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/content"
	"codeberg.org/oliverandrich/portfolio/internal/templates"
	"github.com/labstack/echo/v4"
)

// DefaultHeartbeat is the interval of keep-alive comments on the event stream.
const DefaultHeartbeat = 30 * time.Second

// TLSReport describes the certificate the site serves.
type TLSReport struct {
	Mode        string `json:"mode"`
	Fingerprint string `json:"sha256,omitempty"`
	Expires     string `json:"expires,omitempty"`
}

// Options configures the handlers.
type Options struct { //nolint:govet // fieldalignment not critical
	Profile  *content.Profile
	Units    *contact.Registry
	Notifier *StatusNotifier
	// Badge may be nil when no badge is configured.
	Badge     *badge.Widget
	Contact   config.ContactConfig
	TLS       TLSReport
	Heartbeat time.Duration
}

// Handlers contains all HTTP handlers.
type Handlers struct { //nolint:govet // fieldalignment not critical
	profile   *content.Profile
	units     *contact.Registry
	notifier  *StatusNotifier
	badge     *badge.Widget
	contact   config.ContactConfig
	tls       TLSReport
	heartbeat time.Duration
}

// New creates a new Handlers instance.
func New(opts Options) *Handlers {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Contact.TokenField == "" {
		opts.Contact.TokenField = contact.DefaultTokenField
	}
	if opts.TLS.Mode == "" {
		opts.TLS.Mode = "off"
	}
	return &Handlers{
		profile:   opts.Profile,
		units:     opts.Units,
		notifier:  opts.Notifier,
		badge:     opts.Badge,
		contact:   opts.Contact,
		tls:       opts.TLS,
		heartbeat: opts.Heartbeat,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	badgeStatus := "disabled"
	if h.badge != nil {
		badgeStatus = string(h.badge.Status())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"badge":          badgeStatus,
		"contact_units":  h.units.Len(),
		"stream_clients": h.notifier.Hub().ClientCount(),
		"tls":            h.tls,
	})
}

// Home renders the single page site.
func (h *Handlers) Home(c echo.Context) error {
	page := h.homePage(templates.ContactForm{})
	if unit := h.unit(c); unit != nil {
		page.Contact.Fields = unit.Form()
		page.Contact.Status = templates.NewStatus(unit.State(), nil)
	}
	return Render(c, http.StatusOK, templates.Home(page))
}

func (h *Handlers) homePage(form templates.ContactForm) templates.HomePage {
	form.SiteKey = h.contact.TurnstileSiteKey
	form.TokenField = h.contact.TokenField

	page := templates.HomePage{Profile: h.profile, Contact: form}
	if h.badge == nil {
		return page
	}
	switch h.badge.Status() {
	case badge.StatusReady:
		page.Badge = h.badge.Markup()
	case badge.StatusPending, badge.StatusLoading:
		page.BadgeLazy = true
	}
	return page
}
