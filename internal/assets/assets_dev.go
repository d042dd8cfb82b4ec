// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build dev

// Package assets serves static files from disk during development.
package assets

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const devDir = "internal/assets/static"

// CSSPath returns the path to the main CSS file (unhashed in dev mode).
func CSSPath() string {
	return "/static/dist/styles.css"
}

// JSPath returns the path to the bundled JS file (unhashed in dev mode).
func JSPath() string {
	return "/static/dist/app.js"
}

// FileServer returns an http.Handler that serves static files from the filesystem.
func FileServer() http.Handler {
	return http.FileServer(http.Dir(devDir))
}

// Exists reports whether a file exists on disk for a URL path.
func Exists(urlPath string) bool {
	name := strings.TrimPrefix(urlPath, "/static/")
	_, err := os.Stat(filepath.Join(devDir, filepath.FromSlash(name)))
	return err == nil
}
