// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package badge_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/badge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitDone(t *testing.T, w *badge.Widget) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("widget load did not finish")
	}
}

func TestWidget_MountInstallsMarkup(t *testing.T) {
	var calls atomic.Int32
	loader := badge.NewLoader(fetcherFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return `document.write('<span>Badge</span>')`, nil
	}))
	w := badge.NewWidget(loader, "https://example.com/badge.js", time.Second)
	assert.Equal(t, badge.StatusPending, w.Status())

	w.Mount(context.Background())
	w.Mount(context.Background())
	waitDone(t, w)

	assert.Equal(t, badge.StatusReady, w.Status())
	assert.Equal(t, badge.Markup("<span>Badge</span>"), w.Markup())
	assert.Equal(t, int32(1), calls.Load(), "mount is single shot")
}

func TestWidget_FailureLeavesBadgeEmpty(t *testing.T) {
	loader := badge.NewLoader(fetcherFunc(func(context.Context, string) (string, error) {
		return "", errors.New("offline")
	}))
	w := badge.NewWidget(loader, "https://example.com/badge.js", 0)

	w.Mount(context.Background())
	waitDone(t, w)

	assert.Equal(t, badge.StatusFailed, w.Status())
	assert.Empty(t, w.Markup())
}

func TestWidget_UnmountDiscardsLateLoad(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	started := make(chan struct{})
	loader := badge.NewLoader(fetcherFunc(func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		// A payload arriving after teardown must not be installed.
		return `document.write('<b>late</b>')`, nil
	}))
	w := badge.NewWidget(loader, "https://example.com/badge.js", time.Minute)

	w.Mount(context.Background())
	<-started
	w.Unmount()

	assert.Equal(t, badge.StatusUnmounted, w.Status())
	assert.Empty(t, w.Markup())
}

func TestWidget_TimeoutCancelsLoad(t *testing.T) {
	loader := badge.NewLoader(fetcherFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}))
	w := badge.NewWidget(loader, "https://example.com/badge.js", 10*time.Millisecond)

	w.Mount(context.Background())
	waitDone(t, w)

	assert.Equal(t, badge.StatusFailed, w.Status())
}

func TestWidget_UnmountBeforeMount(t *testing.T) {
	w := badge.NewWidget(badge.NewLoader(fetcherFunc(func(context.Context, string) (string, error) {
		t.Fatal("no load expected")
		return "", nil
	})), "https://example.com/badge.js", 0)

	w.Unmount()
	w.Mount(context.Background())

	assert.Equal(t, badge.StatusUnmounted, w.Status())
}

func TestWidget_UnmountAfterReadyClearsMarkup(t *testing.T) {
	loader := badge.NewLoader(fetcherFunc(func(context.Context, string) (string, error) {
		return `document.write('<span>Badge</span>')`, nil
	}))
	w := badge.NewWidget(loader, "https://example.com/badge.js", 0)
	w.Mount(context.Background())
	waitDone(t, w)
	require.NotEmpty(t, w.Markup())

	w.Unmount()

	assert.Empty(t, w.Markup())
}
