// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

import (
	"context"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/appcontext"
	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/i18n"
)

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(appcontext.CSRFToken{}).(string); ok {
		return token
	}
	return ""
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return i18n.TData(ctx, messageID, data)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// CSSPath returns the path to the hashed CSS file.
func CSSPath(ctx context.Context) string {
	if path, ok := ctx.Value(appcontext.CSSPath{}).(string); ok {
		return path
	}
	return "/static/dist/styles.css"
}

// JSPath returns the path to the hashed JS file.
func JSPath(ctx context.Context) string {
	if path, ok := ctx.Value(appcontext.JSPath{}).(string); ok {
		return path
	}
	return "/static/dist/app.js"
}

// HasVisitor reports whether the request has a visitor session, which the
// status stream needs.
func HasVisitor(ctx context.Context) bool {
	return appcontext.VisitorIDFrom(ctx) != ""
}

var minLengths = map[string]int{
	contact.FieldName:    contact.MinNameLength,
	contact.FieldSubject: contact.MinSubjectLength,
	contact.FieldMessage: contact.MinMessageLength,
}

// FieldError returns the translated validation message for field, or "".
func FieldError(ctx context.Context, errs contact.ValidationErrors, field string) string {
	switch errs[field] {
	case "":
		return ""
	case "required":
		return T(ctx, "validation_required")
	case "too_short":
		return TData(ctx, "validation_too_short", map[string]any{"Min": minLengths[field]})
	default:
		return T(ctx, "validation_invalid")
	}
}

func fieldClass(errMsg string) string {
	if errMsg != "" {
		return "field invalid"
	}
	return "field"
}

func year() string {
	return strconv.Itoa(time.Now().Year())
}

func percent(level int) string {
	return strconv.Itoa(level) + "%"
}
