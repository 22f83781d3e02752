// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhouse-org/selfservice/internal/database"
)

func TestOpen(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())

	// Migrations ran: every table of the schema exists.
	for _, table := range []string{"sessions", "tokens", "phone_codes", "app_passwords"} {
		var name string
		err := db.GetContext(context.Background(), &name,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		assert.NoError(t, err, table)
	}
}

func TestOpen_ForeignKeysEnforced(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(context.Background(),
		`INSERT INTO tokens (username, token, session, created) VALUES ('alice', 't', 'no-such-session', CURRENT_TIMESTAMP)`)

	assert.Error(t, err)
}
