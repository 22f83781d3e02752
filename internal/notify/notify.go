// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify sends reset tokens and verification PINs over email and
// SMS. Pure side effects, no state.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Mailer sends a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Texter sends an SMS.
type Texter interface {
	Send(ctx context.Context, to, body string) error
}

// Dispatcher is the notification capability the recovery flow consumes.
type Dispatcher interface {
	EmailToken(ctx context.Context, username, address, token string) error
	SMSCode(ctx context.Context, number, code string) error
}

// Config carries the organization identity woven into the messages.
type Config struct {
	OrgName      string // e.g. "Clubhouse"
	SupportEmail string // where users turn when they did not request a reset
	BaseURL      string // public base URL of this portal
}

// Dispatch renders the notification templates and hands them to the
// configured transports.
type Dispatch struct {
	mailer Mailer
	texter Texter
	cfg    Config
}

// NewDispatch creates a dispatcher.
func NewDispatch(mailer Mailer, texter Texter, cfg Config) *Dispatch {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Dispatch{mailer: mailer, texter: texter, cfg: cfg}
}

// EmailToken sends the reset link for a freshly issued token.
func (d *Dispatch) EmailToken(ctx context.Context, username, address, token string) error {
	subject := "Your Requested Account Reset"
	body := fmt.Sprintf(
		"Hey there!\n\n"+
			"\tWe just received a request to reset the %s account '%s'. "+
			"According to the information we have about the account, this email (%s) "+
			"is listed as an alternative. If you requested this password reset, please "+
			"follow the link below and proceed with the password reset. If not, please "+
			"contact us immediately at %s.\n\n"+
			"%s/reset?token=%s\n\n"+
			"This token is only valid for 30 minutes, after that you will need to "+
			"reverify your identity.\n\n"+
			"Thanks,\n%s\n%s\n\n"+
			"This message was automatically generated by the account recovery utility.",
		d.cfg.OrgName, username, address, d.cfg.SupportEmail,
		d.cfg.BaseURL, token,
		d.cfg.OrgName, d.cfg.SupportEmail,
	)
	return d.mailer.Send(ctx, address, subject, body)
}

// SMSCode sends the phone verification PIN.
func (d *Dispatch) SMSCode(ctx context.Context, number, code string) error {
	body := fmt.Sprintf("Your %s account recovery PIN is: %s", d.cfg.OrgName, code)
	return d.texter.Send(ctx, number, body)
}
