// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhouse-org/selfservice/internal/auth"
)

type adminIssueRequest struct {
	Username string `json:"username"`
}

// AdminIssueToken mints a reset token for any account, bypassing the
// self-service policy checks. The acting admin is recorded in the audit
// log.
func (h *Handlers) AdminIssueToken(c echo.Context) error {
	var req adminIssueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	identity := auth.IdentityFromContext(c)
	token, err := h.recovery.AdminIssue(c.Request().Context(), identity.Username, req.Username)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"username": token.Username,
		"token":    token.Token,
	})
}

// AdminSessions lists recent recovery sessions with their token state.
func (h *Handlers) AdminSessions(c echo.Context) error {
	sessions, err := h.recovery.RecentSessions(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// AdminMembers lists every directory account.
func (h *Handlers) AdminMembers(c echo.Context) error {
	members, err := h.dir.ListMembers(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}
