// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package change mutates account passwords through the directory and maps
// the identity management API's outcomes to typed errors.
package change

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clubhouse-org/selfservice/internal/directory"
)

// MinPasswordLength is the local minimum for new passwords.
const MinPasswordLength = 12

var (
	// ErrResetFailed means the privileged reset did not complete.
	ErrResetFailed = errors.New("password reset failed")

	// ErrCurrentPasswordInvalid means the old password was wrong.
	ErrCurrentPasswordInvalid = errors.New("current password invalid")

	// ErrChangeFailed is the catch-all for unmapped remote outcomes.
	ErrChangeFailed = errors.New("password change failed")

	// ErrPasswordMismatch means password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrPasswordTooShort means the new password misses the minimum length.
	ErrPasswordTooShort = errors.New("password does not meet requirements")
)

// PolicyViolationError carries the policy detail text reported by the
// directory's password policy engine.
type PolicyViolationError struct {
	Detail string
}

func (e *PolicyViolationError) Error() string {
	return "password policy violation: " + e.Detail
}

// ValidateNewPassword runs the cheap local checks callers must do before
// any remote mutation attempt.
func ValidateNewPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Engine performs password mutations against the directory.
type Engine struct {
	dir directory.Client
}

// NewEngine creates a change engine.
func NewEngine(dir directory.Client) *Engine {
	return &Engine{dir: dir}
}

// Reset sets a new password through the privileged directory connection,
// then performs a self-change with the same password. The directory flags
// administrator-set passwords as expired; the redundant self-change clears
// that flag. Both steps are idempotent for the same password, so a failure
// between them is recovered by simply retrying the whole operation.
func (e *Engine) Reset(ctx context.Context, username, password string) error {
	if err := e.dir.SetPassword(ctx, username, password); err != nil {
		return fmt.Errorf("%w: %v", ErrResetFailed, err)
	}

	outcome, err := e.dir.ChangePassword(ctx, username, password, password)
	if err != nil {
		return fmt.Errorf("%w: clearing expiry flag: %v", ErrResetFailed, err)
	}
	if outcome.Result != directory.ChangeOK {
		slog.Error("self-change after reset did not succeed",
			"username", username, "result", outcome.Result)
		return fmt.Errorf("%w: clearing expiry flag returned %q", ErrResetFailed, outcome.Result)
	}
	return nil
}

// Change updates a password when the current one is known. One remote
// call; the outcome codes map one-to-one onto typed errors and anything
// unmapped collapses to ErrChangeFailed.
func (e *Engine) Change(ctx context.Context, username, oldPassword, newPassword string) error {
	outcome, err := e.dir.ChangePassword(ctx, username, oldPassword, newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChangeFailed, err)
	}

	switch outcome.Result {
	case directory.ChangeOK:
		return nil
	case directory.ChangeInvalidPassword:
		return ErrCurrentPasswordInvalid
	case directory.ChangePolicyError:
		return &PolicyViolationError{Detail: outcome.Detail}
	default:
		slog.Error("unmapped change_password result",
			"username", username, "result", outcome.Result)
		return ErrChangeFailed
	}
}
