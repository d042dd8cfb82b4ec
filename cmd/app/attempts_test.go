// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/i18n"
	"codeberg.org/oliverandrich/portfolio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestWriteAttempts(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)
	attempts := []models.ContactAttempt{
		{Email: "jane@example.com", Subject: "Project inquiry", State: "success", CreatedAt: time.Now()},
		{Email: "joe@example.com", Subject: "Hello there", State: "error", StatusCode: 422, CreatedAt: time.Now()},
	}
	counts := map[string]int64{"success": 1, "error": 1}

	var buf bytes.Buffer
	require.NoError(t, writeAttempts(ctx, &buf, attempts, counts))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "jane@example.com")
	assert.Contains(t, lines[2], "422")
	assert.Equal(t, "2 attempts (error: 1, success: 1)", lines[3])
}

func TestWriteAttempts_Empty(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.German)

	var buf bytes.Buffer
	require.NoError(t, writeAttempts(ctx, &buf, nil, map[string]int64{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "0")
}
