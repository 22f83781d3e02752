// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// SessionTTL is how long a recovery session may be used after creation.
const SessionTTL = 10 * time.Minute

// RecoverySession tracks one in-progress recovery attempt. It is created
// once a user submits their username and passes the captcha, and is the
// anchor for the reset token or phone code issued later. Sessions are
// never updated after creation.
type RecoverySession struct {
	ID       string    `db:"id" json:"id"`
	Username string    `db:"username" json:"username"`
	Created  time.Time `db:"created" json:"created"`
}

// Expired reports whether the session window has passed at the given time.
func (s *RecoverySession) Expired(now time.Time) bool {
	return now.Sub(s.Created) > SessionTTL
}
