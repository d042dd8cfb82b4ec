// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/appcontext"
	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// eventsPath is excluded from compression so events are not buffered.
const eventsPath = "/events"

func setupMiddleware(e *echo.Echo, cfg *config.Config, assets *appcontext.Assets, sessions *session.Manager) {
	e.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == eventsPath },
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(staticCacheHeaders())
	e.Use(customContext(assets))
	e.Use(visitorSession(sessions))
	e.Use(csrfMiddleware(cfg))
	e.Use(csrfToContext())
	e.Use(i18nMiddleware())
}

// csrfMiddleware configures CSRF protection.
func csrfMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        isStatic,
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSecure:   isSecure(cfg),
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

// csrfToContext copies the CSRF token to the request context.
func csrfToContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := c.Get("csrf").(string); ok {
				ctx := context.WithValue(c.Request().Context(), appcontext.CSRFToken{}, token)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// visitorSession makes sure every page request carries a visitor ID. A
// missing or invalid cookie is replaced by a fresh one.
func visitorSession(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isStatic(c) {
				return next(c)
			}

			data, err := sessions.Parse(c.Request())
			if err != nil {
				return err
			}

			var id string
			if data != nil {
				id = data.VisitorID
			} else {
				id = session.NewVisitorID()
				cookie, cookieErr := sessions.Create(id)
				if cookieErr != nil {
					return fmt.Errorf("creating visitor session: %w", cookieErr)
				}
				c.SetCookie(cookie)
				slog.Debug("new visitor session", "visitor", id)
			}

			if cc, ok := c.(*appcontext.Context); ok {
				cc.VisitorID = id
			}
			ctx := appcontext.WithVisitorID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// contactRateLimiter throttles submissions per client IP. perMinute <= 0
// disables the limit.
func contactRateLimiter(perMinute int, deny func(echo.Context, string, error) error) echo.MiddlewareFunc {
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store:       store,
		DenyHandler: deny,
	})
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
			} else {
				slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			}

			return nil
		},
	})
}

// i18nMiddleware sets the locale from the lang query parameter, falling
// back to the Accept-Language header.
func i18nMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
			if q := c.QueryParam("lang"); q != "" && i18n.IsSupported(q) {
				lang = i18n.MatchLanguage(q)
			}
			ctx := i18n.WithLocale(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func isStatic(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/static/")
}

// staticCacheHeaders adds cache headers for static assets.
func staticCacheHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if isStatic(c) {
				if isHashedAsset(path) {
					// Hashed assets get immutable caching
					c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				} else if strings.Contains(path, ".dev.") {
					// Dev assets never cache
					c.Response().Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
				}
			}
			return next(c)
		}
	}
}

// isHashedAsset checks if the path contains a hash pattern like .abc12345.
func isHashedAsset(path string) bool {
	// Match pattern: name.HASH.ext where HASH is 8 hex characters
	parts := strings.Split(path, ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) != 8 {
		return false
	}
	return strings.IndexFunc(hash, func(r rune) bool {
		return (r < '0' || r > '9') && (r < 'a' || r > 'f')
	}) < 0
}
