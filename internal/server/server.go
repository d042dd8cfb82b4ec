// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/content"
	"codeberg.org/oliverandrich/portfolio/internal/database"
	"codeberg.org/oliverandrich/portfolio/internal/handlers"
	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/repository"
	"codeberg.org/oliverandrich/portfolio/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database, migrations run on open
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	profile, err := content.Load(cfg.Content.File)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	sessions, err := session.NewManager(&cfg.Session, isSecure(cfg))
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	a, err := newApp(cfg, repository.New(db), profile, tlsResult.Report())
	if err != nil {
		return err
	}

	e := newEcho(cfg, a.handlers, sessions)

	a.start(ctx)
	defer a.stop()

	return startWithGracefulShutdown(ctx, e, cfg, tlsResult)
}

// newEcho builds the Echo instance with middleware and routes.
func newEcho(cfg *config.Config, h *handlers.Handlers, sessions *session.Manager) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.HTTPErrorHandler

	setupMiddleware(e, cfg, findAssets(), sessions)
	setupRoutes(e, cfg, h)
	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, h *handlers.Handlers) {
	// Static files
	e.GET("/static/*", echo.WrapHandler(staticHandler()))

	e.GET("/health", h.Health)
	e.GET("/", h.Home)
	e.POST("/contact", h.Contact, contactRateLimiter(cfg.Contact.RateLimit, h.RateLimited))
	e.GET("/contact/status", h.ContactStatus)
	e.GET("/events", h.Events)
	e.GET("/partials/badge", h.Badge)
}

func isSecure(cfg *config.Config) bool {
	return strings.HasPrefix(cfg.Server.BaseURL, "https://")
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config, tlsResult *TLSResult) error {
	// Request contexts derive from base, so open event streams end on shutdown.
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	baseContext := func(net.Listener) context.Context { return base }
	e.Server.BaseContext = baseContext
	e.TLSServer.BaseContext = baseContext

	// Channel for server errors
	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		// Plain HTTP on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		// HTTPS on :443
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// ACME challenges and redirects to the base URL on :80
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.RedirectHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("redirecting HTTP to base url", "addr", ":80", "base_url", cfg.Server.BaseURL)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		// HTTPS on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal, cancellation or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server", "reason", ctx.Err())
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelBase()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	// Shutdown HTTP redirect server if running
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
