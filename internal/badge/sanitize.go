// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package badge

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markup is badge HTML that has passed Sanitize.
type Markup string

var forbiddenElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Iframe: true,
	atom.Object: true,
	atom.Embed:  true,
	atom.Style:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Base:   true,
	atom.Form:   true,
}

// newPolicy allows the markup a credential badge is made of: links, images
// and basic inline formatting.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowRelativeURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowElements("div", "span", "p", "br", "b", "strong", "i", "em", "small")
	p.AllowAttrs("class").Globally()
	return p
}

// Sanitize rejects markup containing elements that could run code or change
// the host page, then strips everything the badge policy does not allow.
func Sanitize(raw string) (Markup, error) {
	if err := checkElements(raw); err != nil {
		return "", err
	}
	return Markup(strings.TrimSpace(newPolicy().Sanitize(raw))), nil
}

func checkElements(raw string) error {
	z := html.NewTokenizer(strings.NewReader(raw))
	offset := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return fmt.Errorf("parsing badge markup: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			if forbiddenElements[atom.Lookup(name)] {
				return &EvaluationError{Offset: offset, Reason: fmt.Sprintf("forbidden element <%s>", name)}
			}
		}
		offset += len(z.Raw())
	}
}
