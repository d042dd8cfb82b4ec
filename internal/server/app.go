// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/badge"
	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/content"
	"codeberg.org/oliverandrich/portfolio/internal/handlers"
	"codeberg.org/oliverandrich/portfolio/internal/repository"
	"codeberg.org/oliverandrich/portfolio/internal/services/email"
	"codeberg.org/oliverandrich/portfolio/internal/sse"
)

// sweepInterval is how often idle contact units are dropped.
const sweepInterval = time.Minute

// app holds the long-lived components behind the handlers.
type app struct {
	handlers *handlers.Handlers
	units    *contact.Registry
	notifier *handlers.StatusNotifier
	widget   *badge.Widget
	cancel   context.CancelFunc
	done     chan struct{}
}

func newApp(cfg *config.Config, repo *repository.Repository, profile *content.Profile, tlsReport handlers.TLSReport) (*app, error) {
	relay, err := newRelay(cfg)
	if err != nil {
		return nil, err
	}

	notifier := handlers.NewStatusNotifier(sse.NewHub())
	units := contact.NewRegistry(func(visitorID string) *contact.Unit {
		opts := []contact.Option{
			contact.WithResetDelay(cfg.Contact.ResetDelay),
			contact.WithObserver(notifier.Observer(visitorID)),
		}
		if repo != nil {
			opts = append(opts, contact.WithRecorder(repo.Recorder(visitorID)))
		}
		return contact.NewUnit(relay, opts...)
	}, cfg.Contact.IdleTTL)

	var widget *badge.Widget
	if cfg.Badge.URL != "" {
		fetcher := badge.NewHTTPFetcher(&http.Client{}, cfg.Badge.MaxBytes)
		widget = badge.NewWidget(badge.NewLoader(fetcher), cfg.Badge.URL, cfg.Badge.Timeout)
	}

	return &app{
		handlers: handlers.New(handlers.Options{
			Profile:  profile,
			Units:    units,
			Notifier: notifier,
			Badge:    widget,
			Contact:  cfg.Contact,
			TLS:      tlsReport,
		}),
		units:    units,
		notifier: notifier,
		widget:   widget,
	}, nil
}

func newRelay(cfg *config.Config) (contact.Relay, error) {
	switch cfg.Contact.Relay {
	case config.RelaySMTP:
		relay, err := email.NewRelay(&cfg.SMTP, cfg.Contact.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp relay: %w", err)
		}
		slog.Info("contact relay", "kind", config.RelaySMTP, "to", cfg.SMTP.To)
		return relay, nil
	default:
		relay, err := contact.NewHTTPRelay(cfg.Contact.Endpoint,
			contact.WithTokenField(cfg.Contact.TokenField),
			contact.WithTimeout(cfg.Contact.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create http relay: %w", err)
		}
		slog.Info("contact relay", "kind", config.RelayHTTP, "endpoint", relay.Endpoint())
		return relay, nil
	}
}

// start mounts the badge and begins sweeping idle contact units.
func (a *app) start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	if a.widget != nil {
		a.widget.Mount(ctx)
	}
	go func() {
		defer close(a.done)
		a.units.Run(ctx, sweepInterval)
	}()
}

// stop unmounts the badge and closes every contact unit.
func (a *app) stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	if a.widget != nil {
		a.widget.Unmount()
	}
	a.units.Close()
}
