// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/portfolio/internal/templates"
	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders error pages for 404 and 5xx responses and plain
// text for everything else.
func (h *Handlers) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	var renderErr error
	switch {
	case c.Request().Method == http.MethodHead:
		renderErr = c.NoContent(code)
	case code == http.StatusNotFound:
		renderErr = Render(c, code, templates.NotFound(h.profile))
	case code >= http.StatusInternalServerError:
		slog.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		renderErr = Render(c, code, templates.ServerError(h.profile))
	default:
		renderErr = c.String(code, message)
	}
	if renderErr != nil {
		slog.Error("failed to render error response", "error", renderErr)
	}
}
