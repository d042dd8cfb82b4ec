// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/badge"
	"codeberg.org/oliverandrich/portfolio/internal/templates"
	"github.com/labstack/echo/v4"
)

// badgeWait bounds how long the badge fragment waits for a running load.
const badgeWait = 10 * time.Second

// Badge renders the badge fragment once the widget finished loading. A
// failed or missing badge renders an empty container.
func (h *Handlers) Badge(c echo.Context) error {
	if h.badge == nil {
		return Render(c, http.StatusOK, templates.Badge(""))
	}

	if h.badge.Status() == badge.StatusLoading {
		timer := time.NewTimer(badgeWait)
		defer timer.Stop()
		select {
		case <-h.badge.Done():
		case <-timer.C:
		case <-c.Request().Context().Done():
			return nil
		}
	}

	return Render(c, http.StatusOK, templates.Badge(h.badge.Markup()))
}
