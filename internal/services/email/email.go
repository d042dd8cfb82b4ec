// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers contact submissions by SMTP.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"github.com/wneessen/go-mail"
)

// Relay sends each contact submission as a plain text mail to the site
// owner. It implements contact.Relay.
type Relay struct {
	cfg     *config.SMTPConfig
	timeout time.Duration
}

// NewRelay creates an SMTP relay.
func NewRelay(cfg *config.SMTPConfig, timeout time.Duration) (*Relay, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	if cfg.To == "" {
		return nil, fmt.Errorf("SMTP recipient is required")
	}

	return &Relay{cfg: cfg, timeout: timeout}, nil
}

// Deliver implements contact.Relay. Every failure is a transport failure;
// SMTP has no notion of the relay rejecting a message after acceptance.
func (r *Relay) Deliver(ctx context.Context, s contact.Submission) error {
	msg, err := r.Message(s)
	if err != nil {
		return &contact.TransportError{Err: err}
	}

	client, err := mail.NewClient(r.cfg.Host, r.clientOptions()...)
	if err != nil {
		return &contact.TransportError{Err: fmt.Errorf("creating mail client: %w", err)}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &contact.TransportError{Err: fmt.Errorf("sending email: %w", err)}
	}
	return nil
}

// Message builds the mail for a submission. Replies go to the visitor.
func (r *Relay) Message(s contact.Submission) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if r.cfg.FromName != "" {
		if err := msg.FromFormat(r.cfg.FromName, r.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(r.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(r.cfg.To); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	if err := msg.ReplyTo(s.Email); err != nil {
		return nil, fmt.Errorf("setting reply-to address: %w", err)
	}

	msg.Subject("[Contact] " + s.Subject)
	msg.SetBodyString(mail.TypeTextPlain, body(s))
	return msg, nil
}

func body(s contact.Submission) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", s.Name)
	fmt.Fprintf(&sb, "Email: %s\n", s.Email)
	fmt.Fprintf(&sb, "Subject: %s\n\n", s.Subject)
	sb.WriteString(s.Message)
	sb.WriteString("\n")
	return sb.String()
}

func (r *Relay) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(r.cfg.Port),
	}
	if r.timeout > 0 {
		opts = append(opts, mail.WithTimeout(r.timeout))
	}

	// Configure TLS based on config and port
	if r.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if r.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if r.cfg.Username != "" && r.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(r.cfg.Username),
			mail.WithPassword(r.cfg.Password),
		)
	}
	return opts
}
