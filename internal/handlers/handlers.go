// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the JSON API handlers.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhouse-org/selfservice/internal/directory"
	"github.com/clubhouse-org/selfservice/internal/services/change"
	"github.com/clubhouse-org/selfservice/internal/services/otpenroll"
	"github.com/clubhouse-org/selfservice/internal/services/recovery"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	recovery *recovery.Service
	change   *change.Engine
	otp      *otpenroll.Service
	dir      directory.Client
}

// New creates a new Handlers instance.
func New(recoverySvc *recovery.Service, changeEngine *change.Engine, otpSvc *otpenroll.Service, dir directory.Client) *Handlers {
	return &Handlers{
		recovery: recoverySvc,
		change:   changeEngine,
		otp:      otpSvc,
		dir:      dir,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
