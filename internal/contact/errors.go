// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact

import (
	"errors"
	"fmt"
	"net/http"
)

// Guard failures. Submit returns them without touching the state and without
// contacting the relay.
var (
	ErrMissingToken  = errors.New("verification token is missing")
	ErrTokenConsumed = errors.New("verification token was already used")
	ErrInFlight      = errors.New("a submission is already in flight")
)

// ErrClosed is returned by Submit after the unit was closed.
var ErrClosed = errors.New("contact unit is closed")

// IsGuard reports whether err rejected a submission before it was dispatched.
func IsGuard(err error) bool {
	var verr ValidationErrors
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrTokenConsumed) ||
		errors.Is(err, ErrInFlight) ||
		errors.As(err, &verr)
}

// TransportError wraps a network failure while talking to the relay.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("relay transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectionError is returned when the relay answered with a non-2xx status.
type RejectionError struct {
	StatusCode int
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("relay rejected submission: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
