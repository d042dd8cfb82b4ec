// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package contact implements the contact form workflow: field validation,
// the per-visitor submission state machine and delivery to a form relay.
package contact

import (
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// Minimum field lengths, counted in runes after trimming.
const (
	MinNameLength    = 2
	MinSubjectLength = 5
	MinMessageLength = 8
)

// Field names as used in the HTML form and the relay payload.
const (
	FieldName    = "name"
	FieldSubject = "subject"
	FieldEmail   = "email"
	FieldMessage = "message"
)

// Fields holds the visible values of the contact form.
type Fields struct {
	Name    string
	Subject string
	Email   string
	Message string
}

// Submission is a validated set of fields plus the verification token that
// authorizes exactly one delivery attempt.
type Submission struct {
	Fields
	Token string
}

// Normalize returns a copy with surrounding whitespace removed.
func (f Fields) Normalize() Fields {
	return Fields{
		Name:    strings.TrimSpace(f.Name),
		Subject: strings.TrimSpace(f.Subject),
		Email:   strings.TrimSpace(f.Email),
		Message: strings.TrimSpace(f.Message),
	}
}

// IsZero reports whether all fields are empty.
func (f Fields) IsZero() bool {
	return f == Fields{}
}

// Validate checks the field constraints and returns ValidationErrors when
// at least one of them is violated.
func (f Fields) Validate() error {
	f = f.Normalize()
	errs := ValidationErrors{}

	checkLength(errs, FieldName, f.Name, MinNameLength)
	checkLength(errs, FieldSubject, f.Subject, MinSubjectLength)
	checkLength(errs, FieldMessage, f.Message, MinMessageLength)

	switch {
	case f.Email == "":
		errs[FieldEmail] = "required"
	case !isEmail(f.Email):
		errs[FieldEmail] = "invalid"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkLength(errs ValidationErrors, field, value string, minLen int) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		errs[field] = "required"
	case n < minLen:
		errs[field] = "too_short"
	}
}

// isEmail accepts a bare address only ("a@b.c"), not "Name <a@b.c>".
func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// ValidationErrors maps a field name to a short reason code
// ("required", "too_short", "invalid").
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}
