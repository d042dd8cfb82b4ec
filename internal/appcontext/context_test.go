// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package appcontext_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/portfolio/internal/appcontext"
	"github.com/stretchr/testify/assert"
)

func TestContext_HasVisitor(t *testing.T) {
	assert.True(t, (&appcontext.Context{VisitorID: "v-1"}).HasVisitor())
	assert.False(t, (&appcontext.Context{}).HasVisitor())
}

func TestVisitorID_RoundTrip(t *testing.T) {
	ctx := appcontext.WithVisitorID(context.Background(), "v-1")

	assert.Equal(t, "v-1", appcontext.VisitorIDFrom(ctx))
}

func TestVisitorIDFrom_Missing(t *testing.T) {
	assert.Empty(t, appcontext.VisitorIDFrom(context.Background()))
}
