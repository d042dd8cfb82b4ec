// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/config"
	"codeberg.org/oliverandrich/portfolio/internal/handlers"
	"github.com/samber/lo"
	"golang.org/x/crypto/acme/autocert"
)

// TLSMode represents the resolved TLS mode.
type TLSMode string

const (
	TLSModeOff        TLSMode = "off"
	TLSModeACME       TLSMode = "acme"
	TLSModeSelfSigned TLSMode = "selfsigned"
	TLSModeManual     TLSMode = "manual"
)

const (
	selfSignedValidity = 90 * 24 * time.Hour
	// renewBefore is the remaining lifetime below which a stored self-signed
	// certificate is replaced and a manual one is reported.
	renewBefore = 14 * 24 * time.Hour
)

// TLSResult is the resolved TLS setup of the site.
type TLSResult struct {
	TLSConfig *tls.Config
	// RedirectHandler serves :80 in ACME mode. It answers HTTP-01 challenges
	// and sends every other request to the base URL.
	RedirectHandler http.Handler
	Mode            TLSMode
	leaf            *x509.Certificate
}

// Report describes the setup for the health endpoint. Certificates issued
// by ACME are fetched lazily, so only the mode is known up front.
func (r *TLSResult) Report() handlers.TLSReport {
	report := handlers.TLSReport{Mode: string(r.Mode)}
	if r.leaf != nil {
		report.Fingerprint = fingerprint(r.leaf)
		report.Expires = r.leaf.NotAfter.UTC().Format(time.RFC3339)
	}
	return report
}

// SetupTLS resolves the TLS mode and prepares the matching configuration.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	var (
		result *TLSResult
		err    error
	)
	switch mode := resolveTLSMode(cfg); mode {
	case TLSModeOff:
		result = &TLSResult{Mode: TLSModeOff}
	case TLSModeACME:
		result, err = setupACME(cfg)
	case TLSModeSelfSigned:
		result, err = setupSelfSigned(cfg)
	case TLSModeManual:
		result, err = setupManual(cfg)
	default:
		err = fmt.Errorf("unknown TLS mode: %s", mode)
	}
	if err != nil {
		return nil, err
	}

	report := result.Report()
	slog.Info("tls", "mode", report.Mode, "sha256", report.Fingerprint, "expires", report.Expires)
	if result.Mode == TLSModeSelfSigned {
		slog.Warn("self-signed certificate in use, browsers will ask to accept it")
	}
	return result, nil
}

// resolveTLSMode picks the explicit mode, or guesses one from the host:
// off on localhost, manual with cert files, ACME for a public name with a
// contact email, self-signed otherwise.
func resolveTLSMode(cfg *config.Config) TLSMode {
	switch mode := TLSMode(strings.ToLower(cfg.TLS.Mode)); mode {
	case TLSModeOff, TLSModeACME, TLSModeSelfSigned, TLSModeManual:
		return mode
	case "auto", "":
	default:
		slog.Warn("unknown TLS mode, using auto", "mode", mode)
	}

	host := cfg.Server.Host
	switch {
	case config.IsLocalhost(host):
		return TLSModeOff
	case cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "":
		return TLSModeManual
	case cfg.TLS.Email != "" && net.ParseIP(host) == nil:
		return TLSModeACME
	default:
		return TLSModeSelfSigned
	}
}

// siteHosts returns the bind host and the base URL host, deduplicated.
func siteHosts(cfg *config.Config) []string {
	hosts := []string{cfg.Server.Host}
	if u, err := url.Parse(cfg.Server.BaseURL); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	return lo.Uniq(lo.Compact(hosts))
}

func setupACME(cfg *config.Config) (*TLSResult, error) {
	if cfg.TLS.Email == "" {
		return nil, errors.New("ACME mode requires TLS_EMAIL to be set")
	}
	hosts := lo.Filter(siteHosts(cfg), func(h string, _ int) bool {
		return !config.IsLocalhost(h) && net.ParseIP(h) == nil
	})
	if len(hosts) == 0 {
		return nil, fmt.Errorf("ACME mode needs a public host name, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 443 {
		slog.Warn("ACME mode serves on port 443, configured port is ignored", "configured_port", cfg.Server.Port)
	}

	certDir := filepath.Join(cfg.TLS.CertDir, "acme")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME cert directory: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(certDir),
		HostPolicy: autocert.HostWhitelist(hosts...),
	}
	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	return &TLSResult{
		Mode:            TLSModeACME,
		TLSConfig:       tlsConfig,
		RedirectHandler: manager.HTTPHandler(redirectTo(cfg.Server.BaseURL)),
	}, nil
}

// redirectTo sends requests to the same path under baseURL.
func redirectTo(baseURL string) http.Handler {
	base := strings.TrimSuffix(baseURL, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, base+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

// setupSelfSigned reuses the stored certificate while it is valid and
// covers the site hosts, and generates a new one otherwise.
func setupSelfSigned(cfg *config.Config) (*TLSResult, error) {
	certDir := filepath.Join(cfg.TLS.CertDir, "selfsigned")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create self-signed cert directory: %w", err)
	}
	certFile := filepath.Join(certDir, "cert.pem")
	keyFile := filepath.Join(certDir, "key.pem")
	hosts := siteHosts(cfg)

	cert, leaf, err := loadKeyPair(certFile, keyFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		slog.Warn("stored certificate unusable, generating a new one", "error", err)
	case time.Until(leaf.NotAfter) < renewBefore:
		slog.Info("stored certificate expires soon, generating a new one", "expires", leaf.NotAfter)
	case !covers(leaf, hosts):
		slog.Info("stored certificate does not cover the site hosts, generating a new one", "hosts", hosts)
	default:
		return &TLSResult{Mode: TLSModeSelfSigned, TLSConfig: serverConfig(cert), leaf: leaf}, nil
	}

	if err := generateSelfSigned(hosts, certFile, keyFile); err != nil {
		return nil, err
	}
	cert, leaf, err = loadKeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load generated cert: %w", err)
	}
	return &TLSResult{Mode: TLSModeSelfSigned, TLSConfig: serverConfig(cert), leaf: leaf}, nil
}

func setupManual(cfg *config.Config) (*TLSResult, error) {
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return nil, errors.New("manual TLS mode requires both cert-file and key-file")
	}

	cert, leaf, err := loadKeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("certificate file not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if time.Now().After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.DateOnly))
	}
	if time.Until(leaf.NotAfter) < renewBefore {
		slog.Warn("certificate expires soon", "expires", leaf.NotAfter)
	}

	return &TLSResult{Mode: TLSModeManual, TLSConfig: serverConfig(cert), leaf: leaf}, nil
}

func loadKeyPair(certFile, keyFile string) (*tls.Certificate, *x509.Certificate, error) {
	for _, f := range []string{certFile, keyFile} {
		if _, err := os.Stat(f); err != nil {
			return nil, nil, err
		}
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, nil, err
	}
	leaf := cert.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, nil, err
		}
	}
	return &cert, leaf, nil
}

func covers(leaf *x509.Certificate, hosts []string) bool {
	return lo.EveryBy(hosts, func(h string) bool {
		return leaf.VerifyHostname(h) == nil
	})
}

// generateSelfSigned writes an ECDSA P-256 certificate for hosts plus the
// loopback names.
func generateSelfSigned(hosts []string, certFile, keyFile string) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"Portfolio"}, CommonName: lo.FirstOr(hosts, "localhost")},
		NotBefore:             now,
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "localhost" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := writePEM(certFile, "CERTIFICATE", der); err != nil {
		return err
	}
	return writePEM(keyFile, "EC PRIVATE KEY", keyDER)
}

func writePEM(path, blockType string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// fingerprint is the colon separated SHA-256 of the certificate.
func fingerprint(leaf *x509.Certificate) string {
	sum := sha256.Sum256(leaf.Raw)
	return strings.Join(lo.Map(sum[:], func(b byte, _ int) string {
		return fmt.Sprintf("%02X", b)
	}), ":")
}

func serverConfig(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}
}
