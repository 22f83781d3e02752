// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"

	"github.com/vinovest/sqlx"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyIssued is returned when a session already has a reset token or
// phone verification code. The guard is shared across both kinds: a session
// gets exactly one credential, ever.
var ErrAlreadyIssued = errors.New("token already issued for session")

// ErrExists is returned when inserting a record that must be unique.
var ErrExists = errors.New("record already exists")

// Repository wraps the database for all durable self-service state.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying sqlx DB for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// inTx runs fn inside a transaction, committing on nil and rolling back on
// error. Connections use _txlock=immediate, so the transaction holds the
// write lock from BEGIN and check-then-insert sequences are atomic.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
