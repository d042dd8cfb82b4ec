// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultResetDelay is how long a success message stays before the form
// returns to idle.
const DefaultResetDelay = 5 * time.Second

// Attempt describes the outcome of one dispatched submission.
type Attempt struct { //nolint:govet // fieldalignment: readability over optimization
	Email      string
	Subject    string
	State      State
	StatusCode int
	Err        error
	At         time.Time
}

// Recorder receives the outcome of every dispatched submission.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// Option configures a Unit.
type Option func(*Unit)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(u *Unit) { u.clock = c }
}

// WithResetDelay sets the delay between Success and the automatic return to Idle.
func WithResetDelay(d time.Duration) Option {
	return func(u *Unit) {
		if d > 0 {
			u.resetDelay = d
		}
	}
}

// WithObserver registers a callback invoked on every state transition.
// It runs while the unit is locked and must not call back into the unit.
func WithObserver(fn func(State)) Option {
	return func(u *Unit) { u.observer = fn }
}

// WithRecorder registers a recorder for dispatched attempts.
func WithRecorder(r Recorder) Option {
	return func(u *Unit) { u.recorder = r }
}

// Unit is the submission state machine of one contact form.
//
// Per attempt the state moves Idle → Submitting → Success|Error, and from
// Success back to Idle after the reset delay. Only one attempt can be in
// flight; the guard lives here, not in the submit button.
type Unit struct { //nolint:govet // fieldalignment: readability over optimization
	relay      Relay
	clock      Clock
	resetDelay time.Duration
	observer   func(State)
	recorder   Recorder

	mu         sync.Mutex
	state      State
	form       Fields
	consumed   map[string]struct{}
	timer      Timer
	attempt    uint64
	closed     bool
	lastActive time.Time
}

// NewUnit creates an idle unit delivering through relay.
func NewUnit(relay Relay, opts ...Option) *Unit {
	u := &Unit{
		relay:      relay,
		clock:      realClock{},
		resetDelay: DefaultResetDelay,
		consumed:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.lastActive = u.clock.Now()
	return u
}

// State returns the current state.
func (u *Unit) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Form returns the values the form should display: the submitted values
// while submitting or after an error, empty values after a success.
func (u *Unit) Form() Fields {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.form
}

// CanSubmit reports whether the submit control should be enabled.
func (u *Unit) CanSubmit(token string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed || token == "" || u.state == StateSubmitting {
		return false
	}
	_, used := u.consumed[token]
	return !used
}

// Touch marks the unit as used by its visitor.
func (u *Unit) Touch() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastActive = u.clock.Now()
}

// LastActive returns the time the visitor last used the unit.
func (u *Unit) LastActive() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastActive
}

// Submit validates the fields and token and delivers them through the relay.
//
// Guard failures (see IsGuard) leave the state unchanged. Otherwise the unit
// moves to Submitting and ends in Success (nil error) or Error (a
// *TransportError or *RejectionError).
func (u *Unit) Submit(ctx context.Context, fields Fields, token string) error {
	fields = fields.Normalize()

	u.mu.Lock()
	u.lastActive = u.clock.Now()
	if err := u.guardLocked(fields, token); err != nil {
		u.mu.Unlock()
		return err
	}
	u.attempt++
	attempt := u.attempt
	u.stopTimerLocked()
	u.form = fields
	u.setLocked(StateSubmitting)
	u.mu.Unlock()

	err := u.relay.Deliver(ctx, Submission{Fields: fields, Token: token})

	u.mu.Lock()
	if u.closed || u.attempt != attempt {
		u.mu.Unlock()
		if err == nil {
			return nil
		}
		return normalizeDeliveryError(err)
	}
	if err != nil {
		err = normalizeDeliveryError(err)
		u.setLocked(StateError)
	} else {
		u.consumed[token] = struct{}{}
		u.form = Fields{}
		u.setLocked(StateSuccess)
		u.timer = u.clock.AfterFunc(u.resetDelay, func() { u.reset(attempt) })
	}
	u.mu.Unlock()

	u.record(ctx, fields, err)
	return err
}

// Close tears the unit down: a pending reset is cancelled and later
// submissions fail with ErrClosed.
func (u *Unit) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	u.stopTimerLocked()
}

func (u *Unit) guardLocked(fields Fields, token string) error {
	if u.closed {
		return ErrClosed
	}
	if token == "" {
		return ErrMissingToken
	}
	if _, used := u.consumed[token]; used {
		return ErrTokenConsumed
	}
	if u.state == StateSubmitting {
		return ErrInFlight
	}
	return fields.Validate()
}

func (u *Unit) reset(attempt uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed || u.attempt != attempt || u.state != StateSuccess {
		return
	}
	u.timer = nil
	u.setLocked(StateIdle)
}

func (u *Unit) setLocked(s State) {
	u.state = s
	slog.Debug("contact state", "state", s.String(), "attempt", u.attempt)
	if u.observer != nil {
		u.observer(s)
	}
}

func (u *Unit) stopTimerLocked() {
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}

func (u *Unit) record(ctx context.Context, fields Fields, err error) {
	if u.recorder == nil {
		return
	}
	a := Attempt{
		Email:   fields.Email,
		Subject: fields.Subject,
		State:   StateSuccess,
		Err:     err,
		At:      u.clock.Now(),
	}
	if err != nil {
		a.State = StateError
		var rej *RejectionError
		if errors.As(err, &rej) {
			a.StatusCode = rej.StatusCode
		}
	}
	if recErr := u.recorder.RecordAttempt(context.WithoutCancel(ctx), a); recErr != nil {
		slog.Error("failed to record contact attempt", "error", recErr)
	}
}

// normalizeDeliveryError makes sure every relay failure is one of the two
// error-state kinds.
func normalizeDeliveryError(err error) error {
	var rej *RejectionError
	var tr *TransportError
	if errors.As(err, &rej) || errors.As(err, &tr) {
		return err
	}
	return &TransportError{Err: err}
}
