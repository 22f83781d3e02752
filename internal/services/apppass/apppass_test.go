// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package apppass_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubhouse-org/selfservice/internal/services/apppass"
	"github.com/clubhouse-org/selfservice/internal/testutil"
)

func TestIssue(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := apppass.NewService(repo)
	ctx := context.Background()

	password, err := svc.Issue(ctx, "alice")

	require.NoError(t, err)
	assert.Len(t, strings.Split(password, "-"), apppass.WordCount)

	// Only the bcrypt hash is stored.
	stored, err := repo.GetAppPassword(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, password, stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(password)))
}

func TestIssue_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := apppass.NewService(repo)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.Issue(ctx, "alice")

	assert.ErrorIs(t, err, apppass.ErrExists)
}

func TestRevoke(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := apppass.NewService(repo)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "alice"))

	has, err := svc.Has(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, has)

	// Revoked means a fresh one can be issued.
	_, err = svc.Issue(ctx, "alice")
	require.NoError(t, err)
}

func TestGeneratePassphrase(t *testing.T) {
	seen := map[string]bool{}
	for range 20 {
		passphrase, err := apppass.GeneratePassphrase(apppass.WordCount)
		require.NoError(t, err)

		words := strings.Split(passphrase, "-")
		assert.Len(t, words, apppass.WordCount)
		for _, word := range words {
			assert.NotEmpty(t, word)
		}
		seen[passphrase] = true
	}
	// Collisions across 20 draws would mean a broken random source.
	assert.Len(t, seen, 20)
}
