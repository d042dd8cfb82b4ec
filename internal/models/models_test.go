// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"

	"codeberg.org/oliverandrich/portfolio/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestContactAttempt_Succeeded(t *testing.T) {
	assert.True(t, (&models.ContactAttempt{State: "success"}).Succeeded())
	assert.False(t, (&models.ContactAttempt{State: "error", StatusCode: 500}).Succeeded())
}
