// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhouse-org/selfservice/internal/contact"
)

type startRecoveryRequest struct {
	Username        string `json:"username"`
	CaptchaResponse string `json:"captcha_response"`
}

type startRecoveryResponse struct {
	Session string           `json:"session"`
	Methods *contact.Methods `json:"methods"`
}

// StartRecovery opens a recovery session for an account and returns the
// masked verification channels.
func (h *Handlers) StartRecovery(c echo.Context) error {
	var req startRecoveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	session, err := h.recovery.Start(c.Request().Context(), req.Username, req.CaptchaResponse, c.RealIP())
	if err != nil {
		return apiError(c, err)
	}

	methods, err := h.recovery.Methods(c.Request().Context(), session.ID)
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(http.StatusCreated, startRecoveryResponse{Session: session.ID, Methods: methods})
}

// RecoveryMethods re-reads the channels of an open session.
func (h *Handlers) RecoveryMethods(c echo.Context) error {
	methods, err := h.recovery.Methods(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, methods)
}

type sendRequest struct {
	Index int `json:"index"`
}

// SendRecoveryEmail mails the reset link to the chosen address.
func (h *Handlers) SendRecoveryEmail(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.recovery.SendEmail(c.Request().Context(), c.Param("id"), req.Index); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

// SendRecoveryCode texts the verification PIN to the chosen number.
func (h *Handlers) SendRecoveryCode(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.recovery.SendPhoneCode(c.Request().Context(), c.Param("id"), req.Index); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

// VerifyRecoveryCode checks the submitted PIN and returns the reset token.
func (h *Handlers) VerifyRecoveryCode(c echo.Context) error {
	var req verifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, err := h.recovery.VerifyPhoneCode(c.Request().Context(), c.Param("id"), req.Code)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
