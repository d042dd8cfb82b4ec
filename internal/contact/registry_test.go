// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(clock *fakeClock, ttl time.Duration) (*contact.Registry, map[string][]contact.State) {
	seen := map[string][]contact.State{}
	reg := contact.NewRegistry(func(sessionID string) *contact.Unit {
		return contact.NewUnit(&countingRelay{},
			contact.WithClock(clock),
			contact.WithObserver(func(s contact.State) {
				seen[sessionID] = append(seen[sessionID], s)
			}),
		)
	}, ttl)
	return reg, seen
}

func TestRegistry_GetCreatesOncePerSession(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock(), time.Hour)

	a := reg.Get("a")
	b := reg.Get("b")

	assert.Same(t, a, reg.Get("a"))
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Len())

	u, ok := reg.Lookup("a")
	assert.True(t, ok)
	assert.Same(t, a, u)
	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_ObserverIsPerSession(t *testing.T) {
	reg, seen := newTestRegistry(newFakeClock(), time.Hour)

	require.NoError(t, reg.Get("a").Submit(context.Background(), validFields(), "token"))

	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateSuccess}, seen["a"])
	assert.Empty(t, seen["b"])
}

func TestRegistry_SweepClosesIdleUnits(t *testing.T) {
	clock := newFakeClock()
	reg, seen := newTestRegistry(clock, 30*time.Minute)

	stale := reg.Get("stale")
	require.NoError(t, stale.Submit(context.Background(), validFields(), "token"))
	clock.Advance(20 * time.Minute) // stale resets to idle here
	fresh := reg.Get("fresh")
	require.NoError(t, fresh.Submit(context.Background(), validFields(), "token"))

	clock.Advance(15 * time.Minute)
	removed := reg.Sweep(clock.Now())

	assert.Equal(t, 1, removed)
	_, ok := reg.Lookup("stale")
	assert.False(t, ok)
	assert.ErrorIs(t, stale.Submit(context.Background(), validFields(), "other"), contact.ErrClosed)
	// fresh had its reset pending and still gets it
	assert.Equal(t, contact.StateIdle, fresh.State())
	assert.Equal(t, []contact.State{contact.StateSubmitting, contact.StateSuccess, contact.StateIdle}, seen["fresh"])
}

func TestRegistry_Close(t *testing.T) {
	clock := newFakeClock()
	reg, _ := newTestRegistry(clock, time.Hour)
	u := reg.Get("a")
	require.NoError(t, u.Submit(context.Background(), validFields(), "token"))

	reg.Close()

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, clock.Pending())
	assert.Nil(t, reg.Get("a"))
	assert.ErrorIs(t, u.Submit(context.Background(), validFields(), "x"), contact.ErrClosed)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
