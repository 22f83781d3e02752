// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clubhouse-org/selfservice/internal/models"
)

func TestRecoverySessionExpired(t *testing.T) {
	created := time.Now().UTC()
	session := &models.RecoverySession{ID: "s1", Username: "alice", Created: created}

	assert.False(t, session.Expired(created.Add(9*time.Minute)))
	assert.True(t, session.Expired(created.Add(11*time.Minute)))
}

func TestResetTokenExpired(t *testing.T) {
	created := time.Now().UTC()
	token := &models.ResetToken{Token: "t", Created: created}

	// The token window is independent of the session window.
	assert.False(t, token.Expired(created.Add(29*time.Minute)))
	assert.True(t, token.Expired(created.Add(31*time.Minute)))
}

func TestResetTokenUsable(t *testing.T) {
	created := time.Now().UTC()
	token := &models.ResetToken{Token: "t", Created: created}

	assert.True(t, token.Usable(created.Add(time.Minute)))

	token.Used = true
	assert.False(t, token.Usable(created.Add(time.Minute)))

	token.Used = false
	assert.False(t, token.Usable(created.Add(31*time.Minute)))
}
