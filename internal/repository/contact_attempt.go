// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/portfolio/internal/contact"
	"codeberg.org/oliverandrich/portfolio/internal/models"
)

// CreateContactAttempt stores an attempt and sets its ID.
func (r *Repository) CreateContactAttempt(ctx context.Context, a *models.ContactAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()

	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO contact_attempts (visitor_id, email, subject, state, status_code, error, created_at)
		VALUES (:visitor_id, :email, :subject, :state, :status_code, :error, :created_at)`, a)
	if err != nil {
		return fmt.Errorf("inserting contact attempt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// ListContactAttempts returns the most recent attempts, newest first.
func (r *Repository) ListContactAttempts(ctx context.Context, limit int) ([]models.ContactAttempt, error) {
	attempts := []models.ContactAttempt{}
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT id, visitor_id, email, subject, state, status_code, error, created_at
		FROM contact_attempts
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// CountContactAttemptsByState returns the number of attempts per state.
func (r *Repository) CountContactAttemptsByState(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		State string `db:"state"`
		Count int64  `db:"count"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT state, count(*) AS count FROM contact_attempts GROUP BY state`)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// AttemptRecorder stores the attempts of one visitor. It implements
// contact.Recorder.
type AttemptRecorder struct {
	repo      *Repository
	visitorID string
}

// Recorder returns a contact.Recorder bound to visitorID.
func (r *Repository) Recorder(visitorID string) *AttemptRecorder {
	return &AttemptRecorder{repo: r, visitorID: visitorID}
}

// RecordAttempt implements contact.Recorder.
func (ar *AttemptRecorder) RecordAttempt(ctx context.Context, a contact.Attempt) error {
	row := &models.ContactAttempt{
		VisitorID:  ar.visitorID,
		Email:      a.Email,
		Subject:    a.Subject,
		State:      a.State.String(),
		StatusCode: a.StatusCode,
		CreatedAt:  a.At,
	}
	if a.Err != nil {
		row.Error = a.Err.Error()
	}
	return ar.repo.CreateContactAttempt(ctx, row)
}
