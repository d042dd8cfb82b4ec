// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func receive(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a message")
		return ""
	}
}

func assertSilent(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	ch := hub.Register("session1")
	assert.NotNil(t, ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionCount())

	// Second tab of the same visitor
	ch2 := hub.Register("session1")
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionCount())

	hub.Unregister("session1", ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionCount())

	hub.Unregister("session1", ch2)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.SessionCount())

	_, open := <-ch
	assert.False(t, open, "unregister closes the channel")
}

func TestHub_SendToSession(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register("session1")
	ch2 := hub.Register("session1")
	ch3 := hub.Register("session2")

	hub.SendToSession("session1", "hello")

	assert.Equal(t, "hello", receive(t, ch1))
	assert.Equal(t, "hello", receive(t, ch2))
	assertSilent(t, ch3)

	hub.Unregister("session1", ch1)
	hub.Unregister("session1", ch2)
	hub.Unregister("session2", ch3)
}

func TestHub_SendToUnknownSession(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("session1")

	hub.SendToSession("missing", "hello")

	assertSilent(t, ch)
	hub.Unregister("session1", ch)
}

func TestHub_SendToClient(t *testing.T) {
	hub := NewHub()
	ch1 := hub.Register("session1")
	ch2 := hub.Register("session1")

	hub.SendToClient("session1", ch1, "hello")

	assert.Equal(t, "hello", receive(t, ch1))
	assertSilent(t, ch2)

	hub.Unregister("session1", ch1)
	assert.NotPanics(t, func() { hub.SendToClient("session1", ch1, "late") })
	hub.SendToClient("session2", ch2, "wrong session")
	assertSilent(t, ch2)

	hub.Unregister("session1", ch2)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register("session1")
	ch2 := hub.Register("session2")

	hub.Broadcast("broadcast-message")

	assert.Equal(t, "broadcast-message", receive(t, ch1))
	assert.Equal(t, "broadcast-message", receive(t, ch2))

	hub.Unregister("session1", ch1)
	hub.Unregister("session2", ch2)
}

func TestHub_NonBlockingSend(t *testing.T) {
	hub := NewHub()

	ch := hub.Register("session1")

	for range clientBuffer {
		hub.SendToSession("session1", "msg")
	}

	done := make(chan bool)
	go func() {
		hub.SendToSession("session1", "overflow")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("SendToSession blocked on full channel")
	}

	hub.Unregister("session1", ch)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	const numGoroutines = 100

	channels := make([]chan string, numGoroutines)
	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			channels[idx] = hub.Register("session")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, hub.ClientCount())

	// Sends race with unregistrations
	for i := range numGoroutines {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.SendToSession("session", "concurrent")
		}()
		go func(idx int) {
			defer wg.Done()
			hub.Unregister("session", channels[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Connected(t *testing.T) {
	hub := NewHub()
	assert.False(t, hub.Connected("visitor"))

	ch := hub.Register("visitor")
	assert.True(t, hub.Connected("visitor"))
	assert.False(t, hub.Connected("other"))

	hub.Unregister("visitor", ch)
	assert.False(t, hub.Connected("visitor"))
}
