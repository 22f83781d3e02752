// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth verifies OIDC bearer tokens on authenticated routes.
package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
)

const identityContextKey = "auth.identity"

// Config holds the OIDC verifier settings.
type Config struct {
	IssuerURL  string
	ClientID   string
	AdminGroup string
}

// Identity is the caller extracted from a verified token.
type Identity struct {
	Username string
	Groups   []string
}

// InGroup reports whether the identity carries the given group claim.
func (i *Identity) InGroup(group string) bool {
	return slices.Contains(i.Groups, group)
}

// Verifier validates bearer tokens against the configured issuer.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	cfg      Config
}

// NewVerifier discovers the issuer and builds a token verifier.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &Verifier{verifier: verifier, cfg: cfg}, nil
}

// Verify checks a raw bearer token and extracts the identity claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var claims struct {
		PreferredUsername string   `json:"preferred_username"`
		Sub               string   `json:"sub"`
		Groups            []string `json:"groups"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, err
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Sub
	}
	return &Identity{Username: username, Groups: claims.Groups}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// identity on the echo context.
func (v *Verifier) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			rawToken, found := strings.CutPrefix(header, "Bearer ")
			if !found || rawToken == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			identity, err := v.Verify(c.Request().Context(), rawToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(identityContextKey, identity)
			return next(c)
		}
	}
}

// RequireAdmin restricts a route to members of the configured admin group.
func (v *Verifier) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFromContext(c)
			if identity == nil || !identity.InGroup(v.cfg.AdminGroup) {
				return echo.NewHTTPError(http.StatusForbidden, "admin group required")
			}
			return next(c)
		}
	}
}

// IdentityFromContext returns the identity placed by Middleware, or nil.
func IdentityFromContext(c echo.Context) *Identity {
	identity, _ := c.Get(identityContextKey).(*Identity)
	return identity
}
