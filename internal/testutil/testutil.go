// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/database"
	"codeberg.org/oliverandrich/portfolio/internal/models"
	"codeberg.org/oliverandrich/portfolio/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAttempt stores a contact attempt with the given state and age.
func NewTestAttempt(t *testing.T, repo *repository.Repository, state string, age time.Duration) *models.ContactAttempt {
	t.Helper()
	a := &models.ContactAttempt{
		VisitorID: "visitor-1",
		Email:     "jane@example.com",
		Subject:   "Project inquiry",
		State:     state,
		CreatedAt: time.Now().Add(-age),
	}
	require.NoError(t, repo.CreateContactAttempt(context.Background(), a))
	return a
}
