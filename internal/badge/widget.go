// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package badge

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status describes where a widget is in its lifecycle.
type Status string

// Widget statuses.
const (
	StatusPending   Status = "pending"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
	StatusUnmounted Status = "unmounted"
)

// Widget loads one badge once and holds its markup for rendering.
type Widget struct { //nolint:govet // fieldalignment: readability over optimization
	loader  *Loader
	url     string
	timeout time.Duration

	mu      sync.RWMutex
	markup  Markup
	status  Status
	cancel  context.CancelFunc
	done    chan struct{}
	mounted bool
}

// NewWidget creates an unmounted widget for the badge script at url.
// A timeout <= 0 means the load is bounded only by the mount context.
func NewWidget(loader *Loader, url string, timeout time.Duration) *Widget {
	return &Widget{
		loader:  loader,
		url:     url,
		timeout: timeout,
		status:  StatusPending,
		done:    make(chan struct{}),
	}
}

// Mount starts the load. Only the first call has an effect.
func (w *Widget) Mount(ctx context.Context) {
	w.mu.Lock()
	if w.mounted || w.status == StatusUnmounted {
		w.mu.Unlock()
		return
	}
	w.mounted = true
	w.status = StatusLoading

	ctx, cancel := context.WithCancel(ctx)
	if w.timeout > 0 {
		ctx, cancel = withTimeout(ctx, cancel, w.timeout)
	}
	w.cancel = cancel
	w.mu.Unlock()

	go w.load(ctx)
}

func withTimeout(ctx context.Context, parent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		parent()
	}
}

func (w *Widget) load(ctx context.Context) {
	defer close(w.done)

	markup, err := w.loader.Load(ctx, w.url)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusUnmounted {
		slog.Debug("badge loaded after unmount, discarding", "url", w.url)
		return
	}
	w.cancel()
	if err != nil {
		w.status = StatusFailed
		slog.Warn("badge failed to load", "url", w.url, "error", err)
		return
	}
	w.markup = markup
	w.status = StatusReady
	slog.Info("badge loaded", "url", w.url, "bytes", len(markup))
}

// Unmount cancels an in-flight load and waits for it to finish. Nothing is
// installed afterwards.
func (w *Widget) Unmount() {
	w.mu.Lock()
	mounted := w.mounted
	w.status = StatusUnmounted
	w.markup = ""
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	if mounted {
		<-w.done
	}
}

// Markup returns the installed markup, empty until a load succeeds.
func (w *Widget) Markup() Markup {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.markup
}

// Status returns the lifecycle status.
func (w *Widget) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Done is closed once a mounted load has finished, successfully or not.
func (w *Widget) Done() <-chan struct{} {
	return w.done
}
