// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/sse"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
)

// Events streams contact status updates of the visitor as Server-Sent Events.
func (h *Handlers) Events(c echo.Context) error {
	id := visitorID(c)
	if id == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing visitor session")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	ch := h.notifier.Subscribe(id, language.Make(i18n.GetLocale(ctx)))
	defer h.notifier.Unsubscribe(id, ch)

	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	w.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			w.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
