// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhouse-org/selfservice/internal/directory"
	"github.com/clubhouse-org/selfservice/internal/services/change"
	"github.com/clubhouse-org/selfservice/internal/services/otpenroll"
	"github.com/clubhouse-org/selfservice/internal/services/recovery"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// apiError translates service errors into stable error kinds. Unmapped
// errors become an opaque 500 so internals never leak to the client.
func apiError(c echo.Context, err error) error {
	var policyErr *change.PolicyViolationError
	if errors.As(err, &policyErr) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "policy_violation", Detail: policyErr.Detail})
	}

	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("unhandled API error", "path", c.Path(), "error", err)
		return c.JSON(status, errorBody{Error: "internal"})
	}
	return c.JSON(status, errorBody{Error: kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, recovery.ErrCaptchaFailed):
		return http.StatusBadRequest, "captcha_failed"
	case errors.Is(err, recovery.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, recovery.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, recovery.ErrSessionExpired):
		return http.StatusGone, "session_expired"
	case errors.Is(err, recovery.ErrNoRecoveryMethod):
		return http.StatusNotFound, "no_recovery_method"
	case errors.Is(err, recovery.ErrTokenAlreadyIssued):
		return http.StatusConflict, "token_already_issued"
	case errors.Is(err, recovery.ErrDeliveryFailed):
		return http.StatusBadGateway, "delivery_failed"
	case errors.Is(err, recovery.ErrCodeMismatch):
		return http.StatusBadRequest, "code_mismatch"
	case errors.Is(err, recovery.ErrTokenInvalid):
		return http.StatusBadRequest, "token_invalid"
	case errors.Is(err, recovery.ErrPasswordMismatch), errors.Is(err, change.ErrPasswordMismatch):
		return http.StatusBadRequest, "password_mismatch"
	case errors.Is(err, recovery.ErrPasswordTooShort), errors.Is(err, change.ErrPasswordTooShort):
		return http.StatusBadRequest, "password_too_short"
	case errors.Is(err, change.ErrCurrentPasswordInvalid):
		return http.StatusBadRequest, "current_password_invalid"
	case errors.Is(err, recovery.ErrResetFailed), errors.Is(err, change.ErrResetFailed):
		return http.StatusBadGateway, "reset_failed"
	case errors.Is(err, change.ErrChangeFailed):
		return http.StatusBadGateway, "change_failed"
	case errors.Is(err, otpenroll.ErrOTPInvalidCode):
		return http.StatusBadRequest, "otp_invalid_code"
	case errors.Is(err, otpenroll.ErrOTPAlreadyConfigured):
		return http.StatusConflict, "otp_already_configured"
	case errors.Is(err, otpenroll.ErrOTPNotConfigured):
		return http.StatusNotFound, "otp_not_configured"
	case errors.Is(err, otpenroll.ErrOTPConfigError):
		return http.StatusBadGateway, "otp_config_error"
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound, "account_not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
