// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build !dev

// Package assets provides embedded static assets with content-hashed filenames.
package assets

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed esbuild-meta.json
var metaData []byte

//go:embed static
var staticFS embed.FS

var paths = defaultPaths

func init() {
	if len(metaData) == 0 {
		slog.Debug("esbuild meta is empty, using fallback paths")
		return
	}

	p, err := ParseManifest(metaData)
	if err != nil {
		slog.Error("failed to parse esbuild meta", "error", err)
		return
	}
	paths = p
}

// CSSPath returns the path to the main CSS file.
func CSSPath() string {
	return paths.CSS
}

// JSPath returns the path to the bundled JS file.
func JSPath() string {
	return paths.JS
}

// FileServer returns an http.Handler that serves embedded static files.
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(sub))
}

// Exists reports whether an embedded file exists for a URL path such as
// "/static/dist/app.js".
func Exists(urlPath string) bool {
	name := strings.TrimPrefix(urlPath, "/")
	_, err := fs.Stat(staticFS, name)
	return err == nil
}

// Paths are the URL paths of the bundled stylesheet and script.
type Paths struct {
	CSS string
	JS  string
}

var defaultPaths = Paths{
	CSS: "/static/dist/styles.css",
	JS:  "/static/dist/app.js",
}

// esbuildMeta represents the esbuild metafile format.
type esbuildMeta struct {
	Outputs map[string]struct{} `json:"outputs"`
}

// ParseManifest extracts the URL paths of the CSS and JS outputs from an
// esbuild metafile. Missing outputs keep their unhashed default.
func ParseManifest(data []byte) (Paths, error) {
	var meta esbuildMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return defaultPaths, fmt.Errorf("parsing esbuild meta: %w", err)
	}

	p := defaultPaths
	for outputPath := range meta.Outputs {
		// internal/assets/static/dist/... → /static/dist/...
		idx := strings.Index(outputPath, "/static/")
		if idx < 0 {
			continue
		}
		urlPath := outputPath[idx:]

		switch {
		case strings.HasSuffix(urlPath, ".css"):
			p.CSS = urlPath
		case strings.HasSuffix(urlPath, ".js"):
			p.JS = urlPath
		}
	}
	return p, nil
}
