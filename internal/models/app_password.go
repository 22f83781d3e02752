// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// AppSpecificPassword is a secondary credential for protocols that cannot
// do two-factor (IMAP, SMTP clients). Only the bcrypt hash is stored; the
// plaintext is returned exactly once, at creation.
type AppSpecificPassword struct {
	User     string `db:"user" json:"user"`
	Password string `db:"password" json:"-"`
}
