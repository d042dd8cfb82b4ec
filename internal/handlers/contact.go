// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/htmx"
	"codeberg.org/oliverandrich/portfolio/internal/templates"
	"github.com/labstack/echo/v4"
)

// ContactSentEvent is triggered on the client after a successful delivery.
const ContactSentEvent = "contact-sent"

// Contact handles a contact form submission.
//
// htmx requests get the form fragment back. Plain form posts are redirected
// to the contact section on success and see the full page otherwise.
func (h *Handlers) Contact(c echo.Context) error {
	id := visitorID(c)
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing visitor session")
	}
	unit := h.units.Get(id)
	if unit == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "shutting down")
	}

	fields := contact.Fields{
		Name:    c.FormValue(contact.FieldName),
		Subject: c.FormValue(contact.FieldSubject),
		Email:   c.FormValue(contact.FieldEmail),
		Message: c.FormValue(contact.FieldMessage),
	}
	token := c.FormValue(h.contact.TokenField)

	// The outcome reaches the visitor over the event stream even if this
	// request goes away.
	ctx := context.WithoutCancel(c.Request().Context())
	if h.contact.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.contact.Timeout)
		defer cancel()
	}

	err := unit.Submit(ctx, fields, token)
	logSubmit(id, err)

	form := contactForm(unit, fields, err)
	if htmxRequest(c).IsHtmx {
		if err == nil {
			if terr := htmx.Trigger(c.Response().Header(), ContactSentEvent, nil); terr != nil {
				return terr
			}
		}
		return Render(c, http.StatusOK, templates.Contact(h.homePage(form).Contact))
	}

	if err == nil {
		return c.Redirect(http.StatusSeeOther, "/#contact")
	}
	return Render(c, submitStatus(err), templates.Home(h.homePage(form)))
}

// ContactStatus renders the visitor's current status line as an
// out-of-band fragment. It is the polling fallback for the event stream.
func (h *Handlers) ContactStatus(c echo.Context) error {
	status := templates.Status{}
	if id := visitorID(c); id != "" {
		if unit, ok := h.units.Lookup(id); ok {
			status = templates.NewStatus(unit.State(), nil)
		}
	}
	return Render(c, http.StatusOK, templates.ContactStatus(status, true))
}

// RateLimited answers a throttled submission by replacing the status line.
func (h *Handlers) RateLimited(c echo.Context, _ string, _ error) error {
	status := templates.Status{Kind: templates.KindError, MessageID: "contact_rate_limited"}
	if htmxRequest(c).IsHtmx {
		htmx.Retarget(c.Response().Header(), "#contact-status", "outerHTML")
	}
	return Render(c, http.StatusTooManyRequests, templates.ContactStatus(status, false))
}

func contactForm(unit *contact.Unit, submitted contact.Fields, err error) templates.ContactForm {
	form := templates.ContactForm{
		Fields: unit.Form(),
		Status: templates.NewStatus(unit.State(), err),
	}
	if err == nil {
		return form
	}
	form.Fields = submitted.Normalize()
	var verr contact.ValidationErrors
	if errors.As(err, &verr) {
		form.Errors = verr
	}
	return form
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, contact.ErrClosed):
		return http.StatusServiceUnavailable
	case contact.IsGuard(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func logSubmit(visitorID string, err error) {
	switch {
	case err == nil:
		slog.Info("contact message delivered", "visitor", visitorID)
	case contact.IsGuard(err):
		slog.Debug("contact submission refused", "visitor", visitorID, "error", err)
	default:
		slog.Warn("contact delivery failed", "visitor", visitorID, "error", err)
	}
}
