// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// transitions records every state the observer sees.
type transitions struct {
	mu     sync.Mutex
	states []contact.State
}

func (tr *transitions) observe(s contact.State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.states = append(tr.states, s)
}

func (tr *transitions) All() []contact.State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]contact.State(nil), tr.states...)
}

// countingRelay counts deliveries and returns err.
type countingRelay struct {
	calls atomic.Int32
	err   error
}

func (r *countingRelay) Deliver(context.Context, contact.Submission) error {
	r.calls.Add(1)
	return r.err
}

type memoryRecorder struct {
	mu       sync.Mutex
	attempts []contact.Attempt
}

func (m *memoryRecorder) RecordAttempt(_ context.Context, a contact.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

func newTestUnit(relay contact.Relay) (*contact.Unit, *fakeClock, *transitions) {
	clock := newFakeClock()
	tr := &transitions{}
	u := contact.NewUnit(relay, contact.WithClock(clock), contact.WithObserver(tr.observe))
	return u, clock, tr
}

func TestSubmit_EmptyTokenIsGuarded(t *testing.T) {
	relay := &countingRelay{}
	u, _, tr := newTestUnit(relay)

	err := u.Submit(context.Background(), validFields(), "")

	require.ErrorIs(t, err, contact.ErrMissingToken)
	assert.True(t, contact.IsGuard(err))
	assert.Equal(t, int32(0), relay.calls.Load())
	assert.Equal(t, contact.StateIdle, u.State())
	assert.Empty(t, tr.All())
}

func TestSubmit_InvalidFieldsAreGuarded(t *testing.T) {
	relay := &countingRelay{}
	u, _, tr := newTestUnit(relay)
	f := validFields()
	f.Subject = "Hi"

	err := u.Submit(context.Background(), f, "token")

	var verr contact.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "too_short", verr[contact.FieldSubject])
	assert.Equal(t, int32(0), relay.calls.Load())
	assert.Equal(t, contact.StateIdle, u.State())
	assert.Empty(t, tr.All())
}

func TestSubmit_Success(t *testing.T) {
	relay := &countingRelay{}
	u, clock, tr := newTestUnit(relay)

	err := u.Submit(context.Background(), validFields(), "token")

	require.NoError(t, err)
	assert.Equal(t, int32(1), relay.calls.Load())
	assert.Equal(t, contact.StateSuccess, u.State())
	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateSuccess}, tr.All())
	assert.True(t, u.Form().IsZero(), "fields are cleared after success")

	clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, contact.StateSuccess, u.State())

	clock.Advance(time.Millisecond)
	assert.Equal(t, contact.StateIdle, u.State())
	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateSuccess, contact.StateIdle}, tr.All())
}

func TestSubmit_SuccessConsumesToken(t *testing.T) {
	relay := &countingRelay{}
	u, _, _ := newTestUnit(relay)

	require.NoError(t, u.Submit(context.Background(), validFields(), "token"))
	assert.False(t, u.CanSubmit("token"))

	err := u.Submit(context.Background(), validFields(), "token")

	require.ErrorIs(t, err, contact.ErrTokenConsumed)
	assert.Equal(t, int32(1), relay.calls.Load())
	assert.Equal(t, contact.StateSuccess, u.State())

	require.NoError(t, u.Submit(context.Background(), validFields(), "fresh-token"))
	assert.Equal(t, int32(2), relay.calls.Load())
}

func TestSubmit_NewAttemptCancelsPendingReset(t *testing.T) {
	u, clock, tr := newTestUnit(&countingRelay{})

	require.NoError(t, u.Submit(context.Background(), validFields(), "first"))
	clock.Advance(2 * time.Second)
	require.NoError(t, u.Submit(context.Background(), validFields(), "second"))

	// Only the second timer is pending; the first one was stopped.
	assert.Equal(t, 1, clock.Pending())
	clock.Advance(3 * time.Second)
	assert.Equal(t, contact.StateSuccess, u.State())
	clock.Advance(2 * time.Second)
	assert.Equal(t, contact.StateIdle, u.State())
	assert.Equal(t, []contact.State{
		contact.StateSubmitting, contact.StateSuccess,
		contact.StateSubmitting, contact.StateSuccess,
		contact.StateIdle,
	}, tr.All())
}

func TestSubmit_TransportFailure(t *testing.T) {
	relay := &countingRelay{err: errors.New("connection refused")}
	u, clock, tr := newTestUnit(relay)

	err := u.Submit(context.Background(), validFields(), "token")

	var te *contact.TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, contact.IsGuard(err))
	assert.Equal(t, contact.StateError, u.State())
	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateError}, tr.All())

	clock.Advance(time.Hour)
	assert.Equal(t, contact.StateError, u.State(), "error does not revert on its own")
	assert.Equal(t, 0, clock.Pending())
}

func TestSubmit_ServerErrorKeepsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	relay, err := contact.NewHTTPRelay(srv.URL)
	require.NoError(t, err)
	u, _, tr := newTestUnit(relay)

	err = u.Submit(context.Background(), validFields(), "token")

	var rej *contact.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusInternalServerError, rej.StatusCode)
	assert.Equal(t, contact.StateError, u.State())
	assert.Equal(t, validFields(), u.Form(), "fields are not cleared on error")
	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateError}, tr.All())
}

func TestSubmit_RetryAfterError(t *testing.T) {
	relay := &countingRelay{err: &contact.RejectionError{StatusCode: http.StatusBadGateway}}
	u, _, tr := newTestUnit(relay)

	require.Error(t, u.Submit(context.Background(), validFields(), "token"))
	relay.err = nil

	require.NoError(t, u.Submit(context.Background(), validFields(), "token"))
	assert.Equal(t, []contact.State{
		contact.StateSubmitting, contact.StateError,
		contact.StateSubmitting, contact.StateSuccess,
	}, tr.All())
}

func TestSubmit_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	relay := contact.RelayFunc(func(ctx context.Context, _ contact.Submission) error {
		close(started)
		<-release
		return nil
	})
	u, _, _ := newTestUnit(relay)

	done := make(chan error, 1)
	go func() {
		done <- u.Submit(context.Background(), validFields(), "first")
	}()
	<-started

	assert.Equal(t, contact.StateSubmitting, u.State())
	assert.False(t, u.CanSubmit("second"))

	err := u.Submit(context.Background(), validFields(), "second")
	require.ErrorIs(t, err, contact.ErrInFlight)
	assert.Equal(t, contact.StateSubmitting, u.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, contact.StateSuccess, u.State())
	assert.True(t, u.CanSubmit("second"))
}

func TestCanSubmit(t *testing.T) {
	u, _, _ := newTestUnit(&countingRelay{})

	assert.False(t, u.CanSubmit(""))
	assert.True(t, u.CanSubmit("token"))
}

func TestClose_CancelsPendingReset(t *testing.T) {
	u, clock, tr := newTestUnit(&countingRelay{})
	require.NoError(t, u.Submit(context.Background(), validFields(), "token"))

	u.Close()
	clock.Advance(10 * time.Second)

	assert.Equal(t, 0, clock.Pending())
	assert.Equal(t, contact.StateSuccess, u.State())
	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateSuccess}, tr.All())
	assert.ErrorIs(t, u.Submit(context.Background(), validFields(), "other"), contact.ErrClosed)
	assert.False(t, u.CanSubmit("other"))
}

func TestClose_RealTimerDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	u := contact.NewUnit(&countingRelay{}, contact.WithResetDelay(time.Hour))
	require.NoError(t, u.Submit(context.Background(), validFields(), "token"))
	u.Close()
}

func TestSubmit_RealClockReset(t *testing.T) {
	tr := &transitions{}
	u := contact.NewUnit(&countingRelay{},
		contact.WithResetDelay(20*time.Millisecond),
		contact.WithObserver(tr.observe),
	)

	require.NoError(t, u.Submit(context.Background(), validFields(), "token"))

	assert.Eventually(t, func() bool {
		return u.State() == contact.StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestSubmit_RecordsAttempts(t *testing.T) {
	rec := &memoryRecorder{}
	relay := &countingRelay{}
	u := contact.NewUnit(relay, contact.WithClock(newFakeClock()), contact.WithRecorder(rec))

	require.NoError(t, u.Submit(context.Background(), validFields(), "one"))
	relay.err = &contact.RejectionError{StatusCode: http.StatusTooManyRequests}
	require.Error(t, u.Submit(context.Background(), validFields(), "two"))
	require.ErrorIs(t, u.Submit(context.Background(), validFields(), ""), contact.ErrMissingToken)

	require.Len(t, rec.attempts, 2, "guard failures are not recorded")
	assert.Equal(t, contact.StateSuccess, rec.attempts[0].State)
	assert.Equal(t, "jane@example.com", rec.attempts[0].Email)
	assert.Equal(t, contact.StateError, rec.attempts[1].State)
	assert.Equal(t, http.StatusTooManyRequests, rec.attempts[1].StatusCode)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", contact.StateIdle.String())
	assert.Equal(t, "submitting", contact.StateSubmitting.String())
	assert.Equal(t, "success", contact.StateSuccess.String())
	assert.Equal(t, "error", contact.StateError.String())
	assert.Equal(t, "unknown", contact.State(42).String())
}
