// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhouse-org/selfservice/internal/services/change"
)

// CheckResetToken reports whether a reset token currently authorizes a
// reset. Used by the form page before showing the password fields.
func (h *Handlers) CheckResetToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	valid := h.recovery.ValidToken(c.Request().Context(), token)
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

type resetRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.recovery.Reset(c.Request().Context(), req.Token, req.Password, req.PasswordConfirm); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

type changeRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// ChangePassword changes a password authorized by the current one.
func (h *Handlers) ChangePassword(c echo.Context) error {
	var req changeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}
	if err := change.ValidateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return apiError(c, err)
	}

	if err := h.change.Change(c.Request().Context(), req.Username, req.CurrentPassword, req.Password); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "changed"})
}
