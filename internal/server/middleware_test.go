// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/portfolio/internal/appcontext"
	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestSessions(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager(&config.SessionConfig{
		CookieName: "_visitor",
		MaxAge:     3600,
		HashKey:    testHashKey,
	}, false)
	require.NoError(t, err)
	return m
}

func TestIsHashedAsset(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/static/dist/app.abc12345.js", true},
		{"/static/dist/styles.d073ff63.css", true},
		{"/static/dist/app.dev.js", false},
		{"/static/dist/app.js", false},
		{"/static/dist/app.ABCDEFGH.js", false},  // uppercase not allowed
		{"/static/dist/app.abcd123.js", false},   // wrong length
		{"/static/dist/app.abcd12345.js", false}, // wrong length
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHashedAsset(tt.path))
		})
	}
}

func TestStaticCacheHeaders(t *testing.T) {
	e := echo.New()
	e.Use(staticCacheHeaders())
	e.GET("/static/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	t.Run("hashed asset gets immutable cache", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/dist/app.abc12345.js", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
	})

	t.Run("dev asset gets no-cache", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/dist/app.dev.js", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	})

	t.Run("regular asset gets no cache header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/dist/app.js", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Cache-Control"))
	})
}

func TestStaticCacheHeaders_NonStaticPath(t *testing.T) {
	e := echo.New()
	e.Use(staticCacheHeaders())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestI18nMiddleware(t *testing.T) {
	// Initialize i18n bundle
	require.NoError(t, i18n.Init())

	e := echo.New()
	e.Use(i18nMiddleware())

	var locale string
	e.GET("/", func(c echo.Context) error {
		locale = i18n.GetLocale(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"English header", "/", "en-US", "en"},
		{"German header", "/", "de-DE", "de"},
		{"unsupported header", "/", "fr-FR", "en"},
		{"query overrides header", "/?lang=de", "en-US", "de"},
		{"unsupported query ignored", "/?lang=xx", "de-DE", "de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("Accept-Language", tt.header)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, locale)
		})
	}
}

func TestCsrfMiddleware(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			BaseURL: "http://localhost:8080",
		},
	}

	e := echo.New()
	e.Use(csrfMiddleware(cfg))
	e.POST("/contact", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=x"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code, "posts without a token are refused")
}

func TestCsrfToContext_WithToken(t *testing.T) {
	e := echo.New()

	// Middleware that sets a fake CSRF token
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("csrf", "test-token")
			return next(c)
		}
	})
	e.Use(csrfToContext())

	var csrfToken string
	e.GET("/", func(c echo.Context) error {
		if token := c.Request().Context().Value(appcontext.CSRFToken{}); token != nil {
			csrfToken = token.(string)
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-token", csrfToken)
}

func visitorEcho(t *testing.T, sessions *session.Manager, seen *string) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Use(customContext(&appcontext.Assets{}))
	e.Use(visitorSession(sessions))
	handler := func(c echo.Context) error {
		cc, ok := c.(*appcontext.Context)
		require.True(t, ok)
		assert.Equal(t, cc.VisitorID, appcontext.VisitorIDFrom(c.Request().Context()))
		*seen = cc.VisitorID
		return c.NoContent(http.StatusOK)
	}
	e.GET("/", handler)
	e.GET("/static/*", handler)
	return e
}

func TestVisitorSession_IssuesCookie(t *testing.T) {
	sessions := newTestSessions(t)
	var seen string
	e := visitorEcho(t, sessions, &seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.NotEmpty(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "_visitor", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestVisitorSession_ReusesCookie(t *testing.T) {
	sessions := newTestSessions(t)
	var seen string
	e := visitorEcho(t, sessions, &seen)
	cookie, err := sessions.Create("visitor-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "visitor-42", seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestVisitorSession_ReplacesTamperedCookie(t *testing.T) {
	sessions := newTestSessions(t)
	var seen string
	e := visitorEcho(t, sessions, &seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "_visitor", Value: "tampered"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestVisitorSession_SkipsStatic(t *testing.T) {
	sessions := newTestSessions(t)
	seen := "unset"
	e := visitorEcho(t, sessions, &seen)

	req := httptest.NewRequest(http.MethodGet, "/static/dist/app.js", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Empty(t, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestContactRateLimiter(t *testing.T) {
	e := echo.New()
	denied := 0
	deny := func(c echo.Context, _ string, _ error) error {
		denied++
		return c.NoContent(http.StatusTooManyRequests)
	}
	e.POST("/contact", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, contactRateLimiter(2, deny))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, denied)
}

func TestContactRateLimiter_Disabled(t *testing.T) {
	e := echo.New()
	e.POST("/contact", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, contactRateLimiter(0, nil))

	for range 5 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCustomContext_SetsAssets(t *testing.T) {
	e := echo.New()
	assets := &appcontext.Assets{
		CSSPath: "/static/dist/styles.abc12345.css",
		JSPath:  "/static/dist/app.def45678.js",
	}

	var capturedContext *appcontext.Context
	var capturedRequest *http.Request
	handler := func(c echo.Context) error {
		cc, ok := c.(*appcontext.Context)
		require.True(t, ok, "context should be *appcontext.Context")
		capturedContext = cc
		capturedRequest = c.Request()
		return nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "contact-form")
	c := e.NewContext(req, httptest.NewRecorder())

	require.NoError(t, customContext(assets)(handler)(c))

	assert.Equal(t, assets, capturedContext.Assets)
	assert.True(t, capturedContext.Htmx.IsHtmx)
	assert.Equal(t, "contact-form", capturedContext.Htmx.Target)
	assert.False(t, capturedContext.HasVisitor())

	ctx := capturedRequest.Context()
	assert.Equal(t, "/static/dist/styles.abc12345.css", ctx.Value(appcontext.CSSPath{}))
	assert.Equal(t, "/static/dist/app.def45678.js", ctx.Value(appcontext.JSPath{}))
}
