// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ResetTokenTTL is how long a reset token stays valid after issuance.
// It is deliberately longer than SessionTTL: verification may be slow
// (waiting on an SMS) without rushing the final reset page.
const ResetTokenTTL = 30 * time.Minute

// ResetToken grants access to the password reset operation. The token
// value is the sole bearer credential at that stage, so it is an
// unguessable random UUID. At most one token exists per session.
type ResetToken struct {
	ID       int64     `db:"id" json:"id"`
	Username string    `db:"username" json:"username"`
	Token    string    `db:"token" json:"-"`
	Session  string    `db:"session" json:"session"`
	Created  time.Time `db:"created" json:"created"`
	Used     bool      `db:"used" json:"used"`
}

// Expired reports whether the token window has passed at the given time.
func (t *ResetToken) Expired(now time.Time) bool {
	return now.Sub(t.Created) > ResetTokenTTL
}

// Usable reports whether the token may still authorize a password reset.
func (t *ResetToken) Usable(now time.Time) bool {
	return !t.Used && !t.Expired(now)
}
