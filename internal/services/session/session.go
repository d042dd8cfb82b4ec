// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues the signed cookie that identifies a visitor.
//
// A visitor has no account. The cookie only carries a random ID that keys
// the visitor's contact form state on the server.
package session

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/config"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const keyLength = 32

// Data is the payload stored in the visitor cookie.
type Data struct {
	VisitorID string
	ExpiresAt time.Time
}

// Manager creates and parses visitor cookies.
type Manager struct { //nolint:govet // fieldalignment not critical
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a session manager. An empty hash key is replaced by a
// random one, which invalidates all cookies on restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		slog.Warn("no session hash key configured, generating a random one")
		hashKey = securecookie.GenerateRandomKey(keyLength)
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

func decodeKey(value, name string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", name, err)
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("session %s key must be %d bytes, got %d", name, keyLength, len(key))
	}
	return key, nil
}

// NewVisitorID returns a fresh random visitor ID.
func NewVisitorID() string {
	return uuid.NewString()
}

// Create returns a signed cookie for visitorID.
func (m *Manager) Create(visitorID string) (*http.Cookie, error) {
	data := Data{
		VisitorID: visitorID,
		ExpiresAt: time.Now().Add(time.Duration(m.maxAge) * time.Second),
	}

	encoded, err := m.codec.Encode(m.cookieName, data)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	return m.cookie(encoded, m.maxAge), nil
}

// Parse returns the visitor data from the request cookie, or nil when the
// cookie is missing, tampered with or expired.
func (m *Manager) Parse(r *http.Request) (*Data, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, nil //nolint:nilerr // no cookie is not an error
	}

	var data Data
	if err := m.codec.Decode(m.cookieName, c.Value, &data); err != nil {
		slog.Debug("discarding invalid session cookie", "error", err)
		return nil, nil
	}
	if data.VisitorID == "" || time.Now().After(data.ExpiresAt) {
		return nil, nil
	}
	return &data, nil
}

// Clear returns a cookie that removes the visitor cookie.
func (m *Manager) Clear() *http.Cookie {
	return m.cookie("", -1)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
