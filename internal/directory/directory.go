// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package directory talks to the central identity store. It exposes the
// small capability surface the self-service flows need: member lookup,
// privileged password writes, the password-change endpoint of the identity
// management API, and OTP token storage.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a username does not resolve to a member.
var ErrNotFound = errors.New("member not found")

// Member is a directory account with the attributes relevant to recovery.
type Member struct {
	Username        string
	Mail            []string
	Mobile          []string
	TelephoneNumber []string
	Groups          []string
	LinkedID        string
}

// InGroup reports whether the member belongs to the named group DN.
func (m *Member) InGroup(groupDN string) bool {
	for _, g := range m.Groups {
		if g == groupDN {
			return true
		}
	}
	return false
}

// MemberSummary is one row of the administrative member listing.
type MemberSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Change password result codes as reported by the identity management API.
const (
	ChangeOK              = "ok"
	ChangeInvalidPassword = "invalid-password"
	ChangePolicyError     = "policy-error"
)

// ChangeOutcome is the raw outcome of a password-change call. The change
// engine maps it to typed errors.
type ChangeOutcome struct {
	Result string
	Detail string
}

// Client is the directory capability consumed by the services. The
// production implementation is IPAClient; tests substitute fakes.
type Client interface {
	Lookup(ctx context.Context, username string) (*Member, error)
	SetPassword(ctx context.Context, username, password string) error
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (*ChangeOutcome, error)
	ListMembers(ctx context.Context) ([]MemberSummary, error)
	AddOTPToken(ctx context.Context, username, secret string) error
	FindOTPTokens(ctx context.Context, username string) ([]string, error)
	DeleteOTPToken(ctx context.Context, tokenID string) error
}
