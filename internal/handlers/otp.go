// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhouse-org/selfservice/internal/auth"
)

// OTPStatus reports the caller's registration state in each system.
func (h *Handlers) OTPStatus(c echo.Context) error {
	identity := auth.IdentityFromContext(c)
	status, err := h.otp.Status(c.Request().Context(), identity.Username)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// OTPBegin starts an enrollment for the caller and returns the secret,
// provisioning URI, and QR code.
func (h *Handlers) OTPBegin(c echo.Context) error {
	identity := auth.IdentityFromContext(c)
	result, err := h.otp.Begin(c.Request().Context(), identity.Username)
	if err != nil {
		return apiError(c, err)
	}
	if result.AlreadyConfigured {
		return c.JSON(http.StatusConflict, errorBody{Error: "otp_already_configured"})
	}
	return c.JSON(http.StatusCreated, result)
}

type otpConfirmRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// OTPConfirm completes the enrollment. The app password in the response
// is shown exactly once.
func (h *Handlers) OTPConfirm(c echo.Context) error {
	var req otpConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Secret == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "secret and code are required")
	}

	identity := auth.IdentityFromContext(c)
	appPassword, err := h.otp.Confirm(c.Request().Context(), identity.Username, req.Secret, req.Code)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"app_password": appPassword})
}

// OTPDisable removes the caller's authenticator everywhere.
func (h *Handlers) OTPDisable(c echo.Context) error {
	identity := auth.IdentityFromContext(c)
	if err := h.otp.Disable(c.Request().Context(), identity.Username); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "disabled"})
}
