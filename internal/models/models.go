// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the rows stored in the database.
package models

import (
	"time"
)

// ContactAttempt is the outcome of one dispatched contact submission.
// The message body is never stored.
type ContactAttempt struct { //nolint:govet // fieldalignment not critical for models
	ID         int64     `db:"id" json:"id"`
	VisitorID  string    `db:"visitor_id" json:"visitor_id"`
	Email      string    `db:"email" json:"email"`
	Subject    string    `db:"subject" json:"subject"`
	State      string    `db:"state" json:"state"`
	StatusCode int       `db:"status_code" json:"status_code"`
	Error      string    `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Succeeded reports whether the relay accepted the submission.
func (a *ContactAttempt) Succeeded() bool {
	return a.State == "success"
}
