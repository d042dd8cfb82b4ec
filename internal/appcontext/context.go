// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context and context keys.
package appcontext

import (
	"context"

	"codeberg.org/oliverandrich/portfolio/internal/htmx"
	"github.com/labstack/echo/v4"
)

// Context keys for storing values in context.Context.
type (
	// CSRFToken is the context key for the CSRF token.
	CSRFToken struct{}
	// CSSPath is the context key for the CSS path.
	CSSPath struct{}
	// JSPath is the context key for the JS path.
	JSPath struct{}
	// VisitorID is the context key for the visitor session ID.
	VisitorID struct{}
)

// Assets holds paths to static assets.
type Assets struct {
	CSSPath string
	JSPath  string
}

// Context is a custom Echo context with typed fields for htmx, assets and
// the visitor.
type Context struct {
	echo.Context
	Htmx      *htmx.Request
	Assets    *Assets
	VisitorID string // empty until the session middleware ran
}

// HasVisitor reports whether the request carries a visitor session.
func (c *Context) HasVisitor() bool {
	return c.VisitorID != ""
}

// WithVisitorID stores the visitor ID in ctx for templates.
func WithVisitorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, VisitorID{}, id)
}

// VisitorIDFrom returns the visitor ID stored in ctx, or "".
func VisitorIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(VisitorID{}).(string)
	return id
}
