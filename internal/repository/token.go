// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vinovest/sqlx"

	"github.com/clubhouse-org/selfservice/internal/models"
)

// sessionHasIssued reports whether the session already holds a reset token
// or a phone verification code. Must run inside the issuing transaction so
// that two concurrent issuance attempts cannot both pass the check.
func sessionHasIssued(ctx context.Context, tx *sqlx.Tx, sessionID string) (bool, error) {
	var issued bool
	err := tx.GetContext(ctx, &issued,
		`SELECT EXISTS (SELECT 1 FROM tokens WHERE session = ?)
		     OR EXISTS (SELECT 1 FROM phone_codes WHERE session = ?)`,
		sessionID, sessionID)
	return issued, err
}

// CreateResetToken mints the reset token for a session. Returns
// ErrAlreadyIssued if the session already produced a token or phone code.
func (r *Repository) CreateResetToken(ctx context.Context, session *models.RecoverySession) (*models.ResetToken, error) {
	token := &models.ResetToken{
		Username: session.Username,
		Token:    uuid.NewString(),
		Session:  session.ID,
		Created:  time.Now().UTC(),
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		issued, err := sessionHasIssued(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if issued {
			return ErrAlreadyIssued
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tokens (username, token, session, created, used) VALUES (?, ?, ?, ?, 0)`,
			token.Username, token.Token, token.Session, token.Created)
		if err != nil {
			return err
		}
		token.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// CreatePhoneVerification stores the verification code for a session under
// the same guard as CreateResetToken.
func (r *Repository) CreatePhoneVerification(ctx context.Context, session *models.RecoverySession, code string) (*models.PhoneVerification, error) {
	verification := &models.PhoneVerification{
		Code:    code,
		Session: session.ID,
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		issued, err := sessionHasIssued(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if issued {
			return ErrAlreadyIssued
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO phone_codes (code, session) VALUES (?, ?)`,
			verification.Code, verification.Session)
		if err != nil {
			return err
		}
		verification.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return verification, nil
}

// CreateVerifiedResetToken mints the reset token for a session whose phone
// code was just confirmed. Unlike CreateResetToken it tolerates the phone
// verification row and only enforces one token per session.
func (r *Repository) CreateVerifiedResetToken(ctx context.Context, session *models.RecoverySession) (*models.ResetToken, error) {
	token := &models.ResetToken{
		Username: session.Username,
		Token:    uuid.NewString(),
		Session:  session.ID,
		Created:  time.Now().UTC(),
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var issued bool
		err := tx.GetContext(ctx, &issued,
			`SELECT EXISTS (SELECT 1 FROM tokens WHERE session = ?)`, session.ID)
		if err != nil {
			return err
		}
		if issued {
			return ErrAlreadyIssued
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tokens (username, token, session, created, used) VALUES (?, ?, ?, ?, 0)`,
			token.Username, token.Token, token.Session, token.Created)
		if err != nil {
			return err
		}
		token.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetResetTokenByValue retrieves a reset token by its opaque value.
func (r *Repository) GetResetTokenByValue(ctx context.Context, value string) (*models.ResetToken, error) {
	var token models.ResetToken
	err := r.db.GetContext(ctx, &token, `SELECT * FROM tokens WHERE token = ?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetResetTokenBySession retrieves the reset token of a session, if any.
func (r *Repository) GetResetTokenBySession(ctx context.Context, sessionID string) (*models.ResetToken, error) {
	var token models.ResetToken
	err := r.db.GetContext(ctx, &token, `SELECT * FROM tokens WHERE session = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetPhoneVerification retrieves the verification code of a session, if any.
func (r *Repository) GetPhoneVerification(ctx context.Context, sessionID string) (*models.PhoneVerification, error) {
	var verification models.PhoneVerification
	err := r.db.GetContext(ctx, &verification, `SELECT * FROM phone_codes WHERE session = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &verification, nil
}

// MarkResetTokenUsed flips the used flag. The transition is one-way: a
// token that is already used stays used, and the caller learns about it.
func (r *Repository) MarkResetTokenUsed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tokens SET used = 1 WHERE id = ? AND used = 0`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("token %d: %w", id, ErrNotFound)
	}
	return nil
}
