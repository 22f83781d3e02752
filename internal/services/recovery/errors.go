// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package recovery

import "errors"

// Typed outcomes of the recovery flow. Handlers translate these to stable
// error kinds; raw transport errors never reach the caller.
var (
	// ErrCaptchaFailed means the bot check did not pass.
	ErrCaptchaFailed = errors.New("captcha verification failed")

	// ErrAccountNotFound means the claimed username does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrForbidden means the account may not use self-service recovery.
	ErrForbidden = errors.New("account not eligible for recovery")

	// ErrSessionExpired means the recovery session window has passed. The
	// user must restart from the beginning.
	ErrSessionExpired = errors.New("recovery session expired")

	// ErrNoRecoveryMethod means no verification channel is on file.
	// Terminal; requires support intervention.
	ErrNoRecoveryMethod = errors.New("no recovery method available")

	// ErrTokenAlreadyIssued means the session already produced a token or
	// phone code. Never silently reissues; the user waits out the session.
	ErrTokenAlreadyIssued = errors.New("session already issued a token")

	// ErrDeliveryFailed means the notification could not be sent. The
	// issued token stays valid.
	ErrDeliveryFailed = errors.New("notification delivery failed")

	// ErrCodeMismatch means the submitted phone code did not match. The
	// session stays usable for a retry.
	ErrCodeMismatch = errors.New("verification code mismatch")

	// ErrTokenInvalid means the reset token is unknown, used, or expired.
	ErrTokenInvalid = errors.New("reset token expired or invalid")

	// ErrPasswordMismatch means password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrPasswordTooShort means the new password misses the minimum length.
	ErrPasswordTooShort = errors.New("password does not meet requirements")

	// ErrResetFailed means the directory rejected the password write.
	ErrResetFailed = errors.New("password reset failed")
)
