// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// PhoneVerification holds the six-digit code sent to a phone number to
// confirm ownership before a reset token is minted. It shares the
// single-issuance-per-session guard with ResetToken and inherits its
// session's expiry, so it carries no timestamp of its own.
type PhoneVerification struct {
	ID      int64  `db:"id" json:"id"`
	Code    string `db:"code" json:"-"`
	Session string `db:"session" json:"session"`
}
