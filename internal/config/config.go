// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Contact relay kinds.
const (
	RelayHTTP = "http"
	RelaySMTP = "smtp"
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	TLS      TLSConfig
	Session  SessionConfig
	Contact  ContactConfig
	SMTP     SMTPConfig
	Badge    BadgeConfig
	Content  ContentConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, selfsigned, manual, off
	CertDir  string // Directory for auto-generated certificates
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

type ContactConfig struct { //nolint:govet // fieldalignment not critical
	Relay            string        // http or smtp
	Endpoint         string        // form relay URL (http relay)
	TurnstileSiteKey string        // public site key rendered into the widget
	TokenField       string        // form field carrying the challenge token
	ResetDelay       time.Duration // success message lifetime
	Timeout          time.Duration // delivery timeout
	RateLimit        int           // submissions per minute per client IP, 0 disables
	IdleTTL          time.Duration // idle form units are dropped after this
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	To       string // inbox receiving contact messages
	TLS      bool
}

type BadgeConfig struct {
	URL      string // badge script, empty disables the badge
	Timeout  time.Duration
	MaxBytes int64
}

type ContentConfig struct {
	File string // YAML profile, empty uses the embedded default
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		Contact: ContactConfig{
			Relay:            strings.ToLower(cmd.String("contact-relay")),
			Endpoint:         cmd.String("contact-endpoint"),
			TurnstileSiteKey: cmd.String("turnstile-site-key"),
			TokenField:       cmd.String("contact-token-field"),
			ResetDelay:       cmd.Duration("contact-reset-delay"),
			Timeout:          cmd.Duration("contact-timeout"),
			RateLimit:        int(cmd.Int("contact-rate-limit")),
			IdleTTL:          cmd.Duration("contact-idle-ttl"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			To:       cmd.String("smtp-to"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Badge: BadgeConfig{
			URL:      cmd.String("badge-url"),
			Timeout:  cmd.Duration("badge-timeout"),
			MaxBytes: int64(cmd.Int("badge-max-bytes")),
		},
		Content: ContentConfig{
			File: cmd.String("content-file"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate checks settings that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Contact.Relay {
	case RelayHTTP:
		if c.Contact.Endpoint == "" {
			return fmt.Errorf("contact endpoint is required for the http relay")
		}
	case RelaySMTP:
		if c.SMTP.To == "" {
			return fmt.Errorf("smtp recipient is required for the smtp relay")
		}
	default:
		return fmt.Errorf("unknown contact relay %q (want %s or %s)", c.Contact.Relay, RelayHTTP, RelaySMTP)
	}
	return nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	// Determine if TLS will be used
	useTLS := shouldUseTLS(mode, host)

	scheme := "http"
	if useTLS {
		scheme = "https"
	}

	// ACME mode always uses port 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "selfsigned", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, selfsigned, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for auto-generated certificates",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_visitor",
			Usage:   "Visitor session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   86400, // 1 day in seconds
			Usage:   "Visitor session max age in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
		// Contact form flags
		&cli.StringFlag{
			Name:    "contact-relay",
			Value:   RelayHTTP,
			Usage:   "Contact delivery (http, smtp)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_RELAY"), toml.TOML("contact.relay", configFile)),
		},
		&cli.StringFlag{
			Name:    "contact-endpoint",
			Value:   "https://formcarry.com/s/Zc_v4xd08og",
			Usage:   "Form relay endpoint receiving contact submissions",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_ENDPOINT"), toml.TOML("contact.endpoint", configFile)),
		},
		&cli.StringFlag{
			Name:    "turnstile-site-key",
			Value:   "0x4AAAAAAABT5rh5c_jGhISR",
			Usage:   "Cloudflare Turnstile site key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TURNSTILE_SITE_KEY"), toml.TOML("contact.turnstile_site_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "contact-token-field",
			Value:   "cf-turnstile-response",
			Usage:   "Form field carrying the challenge token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_TOKEN_FIELD"), toml.TOML("contact.token_field", configFile)),
		},
		&cli.DurationFlag{
			Name:    "contact-reset-delay",
			Value:   5 * time.Second,
			Usage:   "How long the success message stays before the form resets",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_RESET_DELAY"), toml.TOML("contact.reset_delay", configFile)),
		},
		&cli.DurationFlag{
			Name:    "contact-timeout",
			Value:   15 * time.Second,
			Usage:   "Timeout for delivering a contact submission",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_TIMEOUT"), toml.TOML("contact.timeout", configFile)),
		},
		&cli.IntFlag{
			Name:    "contact-rate-limit",
			Value:   10,
			Usage:   "Contact submissions per minute per client IP (0 disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_RATE_LIMIT"), toml.TOML("contact.rate_limit", configFile)),
		},
		&cli.DurationFlag{
			Name:    "contact-idle-ttl",
			Value:   30 * time.Minute,
			Usage:   "Drop a visitor's form state after this much inactivity",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTACT_IDLE_TTL"), toml.TOML("contact.idle_ttl", configFile)),
		},
		// SMTP flags (contact-relay=smtp)
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for contact messages",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Portfolio",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-to",
			Usage:   "Inbox receiving contact messages",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TO"), toml.TOML("smtp.to", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// Badge flags
		&cli.StringFlag{
			Name:    "badge-url",
			Value:   "https://tryhackme.com/badge/2529018",
			Usage:   "Badge script URL (empty disables the badge)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BADGE_URL"), toml.TOML("badge.url", configFile)),
		},
		&cli.DurationFlag{
			Name:    "badge-timeout",
			Value:   10 * time.Second,
			Usage:   "Timeout for loading the badge",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BADGE_TIMEOUT"), toml.TOML("badge.timeout", configFile)),
		},
		&cli.IntFlag{
			Name:    "badge-max-bytes",
			Value:   256 << 10,
			Usage:   "Maximum size of the badge script in bytes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BADGE_MAX_BYTES"), toml.TOML("badge.max_bytes", configFile)),
		},
		// Content flags
		&cli.StringFlag{
			Name:    "content-file",
			Usage:   "YAML file with the portfolio content (embedded default if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONTENT_FILE"), toml.TOML("content.file", configFile)),
		},
	}
	return append(flags, CommonFlags()...)
}

// CommonFlags are shared by every subcommand.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
	}
}
