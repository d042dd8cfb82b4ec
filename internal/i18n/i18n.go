// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n translates UI strings. Message files are embedded and picked
// up by name, so adding a language means adding an active.<lang>.toml file.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	bundle    *i18n.Bundle
	supported = []language.Tag{language.English}
	matcher   = language.NewMatcher(supported)
)

type localeContextKey struct{}
type localizerContextKey struct{}

// Init loads all embedded message files.
func Init() error {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(translationFS, "translations/active.*.toml")
	if err != nil {
		return fmt.Errorf("listing translations: %w", err)
	}

	for _, file := range files {
		if _, err := bundle.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("loading %s: %w", path.Base(file), err)
		}
	}

	// English stays first so it wins when nothing matches.
	tags := []language.Tag{language.English}
	for _, tag := range bundle.LanguageTags() {
		if tag != language.English {
			tags = append(tags, tag)
		}
	}
	supported = tags
	matcher = language.NewMatcher(supported)

	return nil
}

// Languages returns the languages that have a message file.
func Languages() []string {
	out := make([]string, len(supported))
	for i, tag := range supported {
		out[i] = tag.String()
	}
	return out
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	locale := lang.String()
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	localizer := i18n.NewLocalizer(bundle, locale)
	return context.WithValue(ctx, localizerContextKey{}, localizer)
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return "en"
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return TData(ctx, messageID, nil)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	msg, err := getLocalizer(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// TPlural translates a message with plural support.
func TPlural(ctx context.Context, messageID string, count int) string {
	msg, err := getLocalizer(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
	if err != nil {
		return messageID
	}
	return msg
}

// MatchLanguage matches the best language from an Accept-Language header.
// The result is a plain base language such as "de", without region.
func MatchLanguage(acceptLanguage string) language.Tag {
	_, idx := language.MatchStrings(matcher, acceptLanguage)
	return supported[idx]
}

// IsSupported reports whether lang (e.g. "de") has a message file.
func IsSupported(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, tag := range supported {
		if tag.String() == lang {
			return true
		}
	}
	return false
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerContextKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	return i18n.NewLocalizer(bundle, "en")
}
