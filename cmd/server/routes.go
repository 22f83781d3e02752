// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/clubhouse-org/selfservice/internal/auth"
	"github.com/clubhouse-org/selfservice/internal/config"
	"github.com/clubhouse-org/selfservice/internal/handlers"
)

// setupRoutes builds the echo instance with all routes and middleware.
func setupRoutes(h *handlers.Handlers, verifier *auth.Verifier, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))

	e.GET("/health", h.Health)

	api := e.Group("/api")

	// Recovery flow, anonymous by nature.
	api.POST("/recovery", h.StartRecovery)
	api.GET("/recovery/:id", h.RecoveryMethods)
	api.POST("/recovery/:id/email", h.SendRecoveryEmail)
	api.POST("/recovery/:id/phone", h.SendRecoveryCode)
	api.POST("/recovery/:id/phone/verify", h.VerifyRecoveryCode)

	// Reset authorized by token, change by current password.
	api.GET("/reset", h.CheckResetToken)
	api.POST("/reset", h.ResetPassword)
	api.POST("/change", h.ChangePassword)

	// OTP enrollment, bearer token required.
	otp := api.Group("/otp", verifier.Middleware())
	otp.GET("", h.OTPStatus)
	otp.POST("", h.OTPBegin)
	otp.POST("/confirm", h.OTPConfirm)
	otp.DELETE("", h.OTPDisable)

	// Admin surface, bearer token plus group membership.
	admin := api.Group("/admin", verifier.Middleware(), verifier.RequireAdmin())
	admin.POST("/tokens", h.AdminIssueToken)
	admin.GET("/sessions", h.AdminSessions)
	admin.GET("/members", h.AdminMembers)

	return e
}
