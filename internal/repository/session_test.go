// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhouse-org/selfservice/internal/repository"
	"github.com/clubhouse-org/selfservice/internal/testutil"
)

func TestCreateRecoverySession(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	session, err := repo.CreateRecoverySession(context.Background(), "alice")

	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "alice", session.Username)
	assert.False(t, session.Created.IsZero())
}

func TestGetRecoverySession(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestSession(t, repo, "alice")

	session, err := repo.GetRecoverySession(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, session.ID)
	assert.Equal(t, "alice", session.Username)
}

func TestGetRecoverySession_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetRecoverySession(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecentSessions(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestSession(t, repo, "alice")
	second := testutil.NewTestSession(t, repo, "bob")

	_, err := repo.CreateResetToken(ctx, second)
	require.NoError(t, err)

	overviews, err := repo.RecentSessions(ctx, 10)

	require.NoError(t, err)
	require.Len(t, overviews, 2)

	byUser := map[string]repository.SessionOverview{}
	for _, o := range overviews {
		byUser[o.Username] = o
	}
	assert.Nil(t, byUser["alice"].TokenCreated)
	assert.NotNil(t, byUser["bob"].TokenCreated)
	require.NotNil(t, byUser["bob"].Used)
	assert.False(t, *byUser["bob"].Used)
}

func TestRecentSessions_Limit(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	for range 5 {
		testutil.NewTestSession(t, repo, "alice")
	}

	overviews, err := repo.RecentSessions(context.Background(), 3)

	require.NoError(t, err)
	assert.Len(t, overviews, 3)
}
