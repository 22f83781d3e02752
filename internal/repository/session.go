// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clubhouse-org/selfservice/internal/models"
)

// CreateRecoverySession creates a recovery session with a fresh random id.
// The id alone authorizes session continuation, so it must be unguessable.
func (r *Repository) CreateRecoverySession(ctx context.Context, username string) (*models.RecoverySession, error) {
	session := &models.RecoverySession{
		ID:       uuid.NewString(),
		Username: username,
		Created:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, username, created) VALUES (?, ?, ?)`,
		session.ID, session.Username, session.Created)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetRecoverySession retrieves a recovery session by id.
func (r *Repository) GetRecoverySession(ctx context.Context, id string) (*models.RecoverySession, error) {
	var session models.RecoverySession
	err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SessionOverview is one row of the administrative session listing: a
// session joined with its reset token, if one was issued.
type SessionOverview struct {
	Username       string     `db:"username" json:"username"`
	SessionCreated time.Time  `db:"session_created" json:"session_created"`
	TokenCreated   *time.Time `db:"token_created" json:"token_created,omitempty"`
	Used           *bool      `db:"used" json:"used,omitempty"`
}

// RecentSessions lists the most recent recovery sessions with their token
// state, newest first.
func (r *Repository) RecentSessions(ctx context.Context, limit int) ([]SessionOverview, error) {
	var overviews []SessionOverview
	err := r.db.SelectContext(ctx, &overviews,
		`SELECT s.username, s.created AS session_created, t.created AS token_created, t.used
		 FROM sessions s
		 LEFT JOIN tokens t ON t.session = s.id
		 ORDER BY s.created DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return overviews, nil
}
