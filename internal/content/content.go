// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package content loads the portfolio profile shown on the home page.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var defaultProfile []byte

// Stat is a highlighted number such as "50+ Projects Completed".
type Stat struct {
	Number string `yaml:"number"`
	Label  string `yaml:"label"`
}

// Skill is a technology with a self-assessed level in percent.
type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

// Project is one entry of the project gallery.
type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Link        string   `yaml:"link"`
	Source      string   `yaml:"source"`
	Image       string   `yaml:"image"`
	Tags        []string `yaml:"tags"`
}

// Link is a social or contact link shown in the footer.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Profile is everything the home page renders apart from the contact form
// and the badge.
type Profile struct { //nolint:govet // fieldalignment: readability over optimization
	Name        string    `yaml:"name"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Tagline     string    `yaml:"tagline"`
	Photo       string    `yaml:"photo"`
	Email       string    `yaml:"email"`
	Roles       []string  `yaml:"roles"`
	Stats       []Stat    `yaml:"stats"`
	Bio         string    `yaml:"bio"`
	Skills      []Skill   `yaml:"skills"`
	Projects    []Project `yaml:"projects"`
	Links       []Link    `yaml:"links"`

	// BioHTML is Bio rendered from markdown and sanitized.
	BioHTML string `yaml:"-"`
}

// Load reads the profile from path, or the embedded default when path is
// empty.
func Load(path string) (*Profile, error) {
	data := defaultProfile
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading content file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, errors.New("content: name is required")
	}
	if p.Title == "" {
		p.Title = p.Name
	}

	p.Roles = lo.Compact(lo.Map(p.Roles, func(r string, _ int) string { return strings.TrimSpace(r) }))
	p.Skills = lo.Map(p.Skills, func(s Skill, _ int) Skill {
		s.Level = lo.Clamp(s.Level, 0, 100)
		return s
	})
	p.Projects = lo.Filter(p.Projects, func(pr Project, _ int) bool { return pr.Title != "" })

	for _, pr := range p.Projects {
		if err := checkURL(pr.Link); err != nil {
			return nil, fmt.Errorf("content: project %q: %w", pr.Title, err)
		}
		if err := checkURL(pr.Source); err != nil {
			return nil, fmt.Errorf("content: project %q: %w", pr.Title, err)
		}
	}
	for _, l := range p.Links {
		if err := checkURL(l.URL); err != nil {
			return nil, fmt.Errorf("content: link %q: %w", l.Label, err)
		}
	}

	bio, err := RenderMarkdown(p.Bio)
	if err != nil {
		return nil, err
	}
	p.BioHTML = bio

	return &p, nil
}

// Tags returns the distinct project tags in order of first use.
func (p *Profile) Tags() []string {
	return lo.Uniq(lo.FlatMap(p.Projects, func(pr Project, _ int) []string { return pr.Tags }))
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	policy   = bluemonday.UGCPolicy().RequireNoFollowOnLinks(true).AddTargetBlankToFullyQualifiedLinks(true)
)

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimSpace(policy.Sanitize(buf.String())), nil
}

func checkURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "mailto", "":
		return nil
	default:
		return fmt.Errorf("invalid url %q: unsupported scheme %q", raw, u.Scheme)
	}
}
