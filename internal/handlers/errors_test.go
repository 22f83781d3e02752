// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clubhouse-org/selfservice/internal/services/change"
	"github.com/clubhouse-org/selfservice/internal/services/otpenroll"
	"github.com/clubhouse-org/selfservice/internal/services/recovery"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{recovery.ErrCaptchaFailed, http.StatusBadRequest, "captcha_failed"},
		{recovery.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
		{recovery.ErrForbidden, http.StatusForbidden, "forbidden"},
		{recovery.ErrSessionExpired, http.StatusGone, "session_expired"},
		{recovery.ErrTokenAlreadyIssued, http.StatusConflict, "token_already_issued"},
		{recovery.ErrDeliveryFailed, http.StatusBadGateway, "delivery_failed"},
		{recovery.ErrCodeMismatch, http.StatusBadRequest, "code_mismatch"},
		{recovery.ErrTokenInvalid, http.StatusBadRequest, "token_invalid"},
		{change.ErrCurrentPasswordInvalid, http.StatusBadRequest, "current_password_invalid"},
		{change.ErrChangeFailed, http.StatusBadGateway, "change_failed"},
		{otpenroll.ErrOTPInvalidCode, http.StatusBadRequest, "otp_invalid_code"},
		{otpenroll.ErrOTPAlreadyConfigured, http.StatusConflict, "otp_already_configured"},
		{errors.New("surprise"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		status, kind := classify(tt.err)
		assert.Equal(t, tt.wantStatus, status, tt.err.Error())
		assert.Equal(t, tt.wantKind, kind, tt.err.Error())
	}
}

func TestClassify_WrappedError(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), recovery.ErrForbidden)

	status, kind := classify(wrapped)

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", kind)
}
