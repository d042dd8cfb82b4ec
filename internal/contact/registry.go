// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry keeps one Unit per visitor session.
type Registry struct {
	newUnit func(sessionID string) *Unit
	ttl     time.Duration
	units   map[string]*Unit
	mu      sync.Mutex
	closed  bool
}

// NewRegistry creates a registry. newUnit builds the unit for a session the
// first time it is requested; units idle for longer than ttl are closed by Sweep.
func NewRegistry(newUnit func(sessionID string) *Unit, ttl time.Duration) *Registry {
	return &Registry{
		newUnit: newUnit,
		ttl:     ttl,
		units:   make(map[string]*Unit),
	}
}

// Get returns the unit for sessionID, creating it if needed.
// It returns nil once the registry is closed.
func (r *Registry) Get(sessionID string) *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if u, ok := r.units[sessionID]; ok {
		u.Touch()
		return u
	}
	u := r.newUnit(sessionID)
	r.units[sessionID] = u
	return u
}

// Lookup returns the unit for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Unit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[sessionID]
	return u, ok
}

// Len returns the number of live units.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.units)
}

// Sweep closes and forgets units that were inactive since before now-ttl.
// Units with a submission in flight are kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, u := range r.units {
		if u.State() == StateSubmitting {
			continue
		}
		if now.Sub(u.LastActive()) < r.ttl {
			continue
		}
		u.Close()
		delete(r.units, id)
		removed++
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				slog.Debug("swept idle contact units", "count", n)
			}
		}
	}
}

// Close closes every unit. Get returns nil afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.units {
		u.Close()
		delete(r.units, id)
	}
	r.closed = true
}
