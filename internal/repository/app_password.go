// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vinovest/sqlx"

	"github.com/clubhouse-org/selfservice/internal/models"
)

// CreateAppPassword stores the hash of an application specific password.
// At most one exists per user; a second insert fails with ErrExists.
func (r *Repository) CreateAppPassword(ctx context.Context, user, passwordHash string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM app_passwords WHERE user = ?)`, user)
		if err != nil {
			return err
		}
		if exists {
			return ErrExists
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO app_passwords (user, password) VALUES (?, ?)`, user, passwordHash)
		return err
	})
}

// GetAppPassword retrieves the stored hash for a user.
func (r *Repository) GetAppPassword(ctx context.Context, user string) (*models.AppSpecificPassword, error) {
	var password models.AppSpecificPassword
	err := r.db.GetContext(ctx, &password, `SELECT * FROM app_passwords WHERE user = ?`, user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &password, nil
}

// HasAppPassword checks whether a user has an application specific password.
func (r *Repository) HasAppPassword(ctx context.Context, user string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM app_passwords WHERE user = ?)`, user)
	return exists, err
}

// DeleteAppPassword removes the password for a user, if present.
func (r *Repository) DeleteAppPassword(ctx context.Context, user string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM app_passwords WHERE user = ?`, user)
	return err
}
