// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhouse-org/selfservice/internal/handlers"
	"github.com/clubhouse-org/selfservice/internal/testutil"
)

func TestHealth(t *testing.T) {
	e := echo.New()
	h := handlers.New(nil, nil, nil, nil)
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	require.NoError(t, h.Health(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStartRecovery_MissingUsername(t *testing.T) {
	e := echo.New()
	h := handlers.New(nil, nil, nil, nil)
	c, _ := testutil.NewEchoContext(e, http.MethodPost, "/api/recovery", strings.NewReader(`{}`))

	err := h.StartRecovery(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestCheckResetToken_MissingToken(t *testing.T) {
	e := echo.New()
	h := handlers.New(nil, nil, nil, nil)
	c, _ := testutil.NewEchoContext(e, http.MethodGet, "/api/reset", nil)

	err := h.CheckResetToken(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestOTPConfirm_MissingFields(t *testing.T) {
	e := echo.New()
	h := handlers.New(nil, nil, nil, nil)
	c, _ := testutil.NewEchoContext(e, http.MethodPost, "/api/otp/confirm", strings.NewReader(`{"secret":"x"}`))

	err := h.OTPConfirm(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
