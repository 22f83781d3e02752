// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package broker talks to the SSO identity broker for OTP device
// registration. The enrollment protocol in services/otpenroll drives it and
// maps its outcomes to user-facing results.
package broker

import (
	"context"
	"errors"
)

// Typed outcomes of broker calls. The enrollment protocol relies on these
// being distinguishable; anything else collapses to a generic error.
var (
	ErrInvalidCode    = errors.New("broker rejected the one-time code")
	ErrInvalidSecret  = errors.New("broker rejected the secret")
	ErrAlreadyExists  = errors.New("an OTP device is already registered")
	ErrNotRegistered  = errors.New("no OTP device is registered")
	ErrInvalidRequest = errors.New("broker rejected the request")
)

// Client is the OTP capability of the identity broker.
type Client interface {
	// IsRegistered reports whether the user has an OTP device of the given
	// device class registered.
	IsRegistered(ctx context.Context, username, device string) (bool, error)

	// GenerateSecret asks the broker for a fresh shared TOTP secret. The
	// secret is inert until Register binds it.
	GenerateSecret(ctx context.Context, username string) (string, error)

	// Register binds secret to the user's account, proving possession with
	// a live code. Returns ErrInvalidCode, ErrInvalidSecret or
	// ErrAlreadyExists for the corresponding remote outcomes.
	Register(ctx context.Context, username, secret, code, device string, overwrite bool) error

	// Unregister removes the user's OTP device of the given class.
	Unregister(ctx context.Context, username, device string) error
}
