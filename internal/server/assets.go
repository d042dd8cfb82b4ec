// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/portfolio/internal/appcontext"
	"codeberg.org/oliverandrich/portfolio/internal/assets"
)

// findAssets returns asset paths from the embedded manifest.
func findAssets() *appcontext.Assets {
	a := &appcontext.Assets{
		CSSPath: assets.CSSPath(),
		JSPath:  assets.JSPath(),
	}
	slog.Debug("assets loaded", "css", a.CSSPath, "js", a.JSPath)
	return a
}

// staticHandler serves /static/* from the asset package.
func staticHandler() http.Handler {
	return http.StripPrefix("/static", assets.FileServer())
}
