// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates holds the templ components of the site.
package templates

import (
	"context"
	"errors"

	"codeberg.org/oliverandrich/portfolio/internal/badge"
	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/content"
)

// HomePage is the data behind the single page site.
type HomePage struct {
	Profile *content.Profile
	Contact ContactForm
	Badge   badge.Markup
	// BadgeLazy renders a placeholder that loads the badge via htmx.
	BadgeLazy bool
}

// ContactForm is the view of a visitor's contact unit.
type ContactForm struct { //nolint:govet // fieldalignment: readability over optimization
	Fields     contact.Fields
	Errors     contact.ValidationErrors
	Status     Status
	SiteKey    string
	TokenField string
}

// Submitting reports whether a submission is in flight.
func (f ContactForm) Submitting() bool {
	return f.Status.State == contact.StateSubmitting
}

// Disabled reports whether the submit button starts out disabled. With a
// verification widget the button stays disabled until the widget hands out
// a token.
func (f ContactForm) Disabled() bool {
	return f.Submitting() || f.SiteKey != ""
}

// Status kinds double as CSS classes.
const (
	KindNone       = ""
	KindSubmitting = "submitting"
	KindSuccess    = "success"
	KindError      = "error"
)

// Status is the message shown above the submit button.
type Status struct {
	State     contact.State
	Kind      string
	MessageID string
	Data      map[string]any
}

// Text returns the translated status message.
func (s Status) Text(ctx context.Context) string {
	if s.MessageID == "" {
		return ""
	}
	return TData(ctx, s.MessageID, s.Data)
}

// NewStatus describes a unit state, refined by the error of the last
// Submit call when there is one.
func NewStatus(state contact.State, err error) Status {
	s := Status{State: state}

	var rej *contact.RejectionError
	var verr contact.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verr):
		// Shown next to the fields.
		return s
	case errors.Is(err, contact.ErrMissingToken), errors.Is(err, contact.ErrTokenConsumed):
		// The re-rendered form carries a fresh widget and a disabled button.
		return s
	case errors.Is(err, contact.ErrInFlight):
		s.Kind, s.MessageID = KindSubmitting, "contact_in_flight"
		return s
	case errors.As(err, &rej):
		s.Kind, s.MessageID = KindError, "contact_error_rejected"
		s.Data = map[string]any{"Status": rej.StatusCode}
		return s
	default:
		s.Kind, s.MessageID = KindError, "contact_error"
		return s
	}

	switch state {
	case contact.StateSubmitting:
		s.Kind, s.MessageID = KindSubmitting, "contact_submitting"
	case contact.StateSuccess:
		s.Kind, s.MessageID = KindSuccess, "contact_success"
	case contact.StateError:
		s.Kind, s.MessageID = KindError, "contact_error"
	}
	return s
}

func statusClass(s Status) string {
	if s.Kind == KindNone {
		return "status"
	}
	return "status " + s.Kind
}
