// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact_test

import (
	"testing"

	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() contact.Fields {
	return contact.Fields{
		Name:    "Jane Doe",
		Subject: "Project inquiry",
		Email:   "jane@example.com",
		Message: "I would like to talk about a project.",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validFields().Validate())
}

func TestValidate_MinimumLengths(t *testing.T) {
	f := contact.Fields{
		Name:    "Jo",
		Subject: "Hello",
		Email:   "a@b.io",
		Message: "12345678",
	}

	assert.NoError(t, f.Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*contact.Fields)
		field  string
		reason string
	}{
		{"empty name", func(f *contact.Fields) { f.Name = "" }, contact.FieldName, "required"},
		{"whitespace name", func(f *contact.Fields) { f.Name = "   " }, contact.FieldName, "required"},
		{"short name", func(f *contact.Fields) { f.Name = "J" }, contact.FieldName, "too_short"},
		{"short subject", func(f *contact.Fields) { f.Subject = "Hey" }, contact.FieldSubject, "too_short"},
		{"eight rune message", func(f *contact.Fields) { f.Message = "Hi there" }, "", ""},
		{"seven rune message", func(f *contact.Fields) { f.Message = "Hi ther" }, contact.FieldMessage, "too_short"},
		{"empty email", func(f *contact.Fields) { f.Email = "" }, contact.FieldEmail, "required"},
		{"email without at", func(f *contact.Fields) { f.Email = "jane.example.com" }, contact.FieldEmail, "invalid"},
		{"email with display name", func(f *contact.Fields) { f.Email = "Jane <jane@example.com>" }, contact.FieldEmail, "invalid"},
		{"email without domain dot", func(f *contact.Fields) { f.Email = "jane@localhost" }, contact.FieldEmail, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.modify(&f)

			err := f.Validate()

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr contact.ValidationErrors
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr[tt.field])
			assert.Len(t, verr, 1)
		})
	}
}

func TestValidate_MultibyteCountsRunes(t *testing.T) {
	f := validFields()
	f.Name = "Jö"

	assert.NoError(t, f.Validate())
}

func TestValidationErrors_Error(t *testing.T) {
	err := contact.ValidationErrors{"subject": "too_short", "email": "invalid"}

	assert.Equal(t, "invalid fields: email: invalid, subject: too_short", err.Error())
}

func TestNormalize(t *testing.T) {
	f := contact.Fields{Name: "  Jane ", Subject: "\tHello there\n", Email: " jane@example.com", Message: " hi "}

	n := f.Normalize()

	assert.Equal(t, "Jane", n.Name)
	assert.Equal(t, "Hello there", n.Subject)
	assert.Equal(t, "jane@example.com", n.Email)
	assert.Equal(t, "hi", n.Message)
}

func TestIsGuard(t *testing.T) {
	assert.True(t, contact.IsGuard(contact.ErrMissingToken))
	assert.True(t, contact.IsGuard(contact.ErrTokenConsumed))
	assert.True(t, contact.IsGuard(contact.ErrInFlight))
	assert.True(t, contact.IsGuard(contact.ValidationErrors{"name": "required"}))
	assert.False(t, contact.IsGuard(&contact.RejectionError{StatusCode: 500}))
	assert.False(t, contact.IsGuard(contact.ErrClosed))
}
