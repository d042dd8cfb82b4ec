// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"log/slog"
	"sync"

	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/sse"
	"codeberg.org/oliverandrich/portfolio/internal/templates"
	"github.com/a-h/templ"
	"github.com/samber/lo"
	"golang.org/x/text/language"
)

// StatusNotifier pushes contact state changes to the visitor's open event
// streams. Each stream gets the update in the language it was opened with.
type StatusNotifier struct {
	hub     *sse.Hub
	streams map[string]map[chan string]language.Tag
	mu      sync.Mutex
}

// NewStatusNotifier creates a notifier publishing on hub.
func NewStatusNotifier(hub *sse.Hub) *StatusNotifier {
	return &StatusNotifier{
		hub:     hub,
		streams: make(map[string]map[chan string]language.Tag),
	}
}

// Hub returns the hub the notifier publishes on.
func (n *StatusNotifier) Hub() *sse.Hub {
	return n.hub
}

// Subscribe opens a stream for visitorID whose updates are rendered in lang.
func (n *StatusNotifier) Subscribe(visitorID string, lang language.Tag) chan string {
	ch := n.hub.Register(visitorID)

	n.mu.Lock()
	defer n.mu.Unlock()
	streams, ok := n.streams[visitorID]
	if !ok {
		streams = make(map[chan string]language.Tag)
		n.streams[visitorID] = streams
	}
	streams[ch] = lang
	return ch
}

// Unsubscribe closes a stream opened by Subscribe.
func (n *StatusNotifier) Unsubscribe(visitorID string, ch chan string) {
	n.mu.Lock()
	delete(n.streams[visitorID], ch)
	if len(n.streams[visitorID]) == 0 {
		delete(n.streams, visitorID)
	}
	n.mu.Unlock()

	n.hub.Unregister(visitorID, ch)
}

// byLocale groups the visitor's streams by locale.
func (n *StatusNotifier) byLocale(visitorID string) map[string][]chan string {
	n.mu.Lock()
	defer n.mu.Unlock()

	streams := n.streams[visitorID]
	return lo.GroupBy(lo.Keys(streams), func(ch chan string) string {
		return streams[ch].String()
	})
}

// Observer returns the state observer for the unit of visitorID.
func (n *StatusNotifier) Observer(visitorID string) func(contact.State) {
	return func(state contact.State) {
		n.Publish(visitorID, templates.ContactStatus(templates.NewStatus(state, nil), true))
	}
}

// Publish renders component once per language in use and sends it to the
// visitor's streams. Nothing is rendered while the visitor has no stream open.
func (n *StatusNotifier) Publish(visitorID string, component templ.Component) {
	for locale, streams := range n.byLocale(visitorID) {
		msg, err := renderEvent(i18n.WithLocale(context.Background(), language.Make(locale)), component)
		if err != nil {
			slog.Error("failed to render status update", "visitor", visitorID, "locale", locale, "error", err)
			continue
		}
		for _, ch := range streams {
			n.hub.SendToClient(visitorID, ch, msg)
		}
	}
}

func renderEvent(ctx context.Context, component templ.Component) (string, error) {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(ctx, buf); err != nil {
		return "", err
	}
	return sse.FormatContactStatus(buf.String()), nil
}
