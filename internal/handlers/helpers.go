// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"codeberg.org/oliverandrich/portfolio/internal/appcontext"
	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/htmx"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

func visitorID(c echo.Context) string {
	if cc, ok := c.(*appcontext.Context); ok && cc.HasVisitor() {
		return cc.VisitorID
	}
	return appcontext.VisitorIDFrom(c.Request().Context())
}

func htmxRequest(c echo.Context) *htmx.Request {
	if cc, ok := c.(*appcontext.Context); ok && cc.Htmx != nil {
		return cc.Htmx
	}
	return htmx.ParseRequest(c.Request())
}

// unit returns the visitor's contact unit, or nil without a visitor or
// after shutdown began.
func (h *Handlers) unit(c echo.Context) *contact.Unit {
	id := visitorID(c)
	if id == "" {
		return nil
	}
	return h.units.Get(id)
}
