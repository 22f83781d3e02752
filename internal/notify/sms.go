// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig carries the SMS gateway credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ServiceSID string // messaging service, optional
}

// TwilioTexter sends SMS through the Twilio API.
type TwilioTexter struct {
	cfg    TwilioConfig
	client *twilio.RestClient
}

// NewTwilioTexter creates a texter.
func NewTwilioTexter(cfg TwilioConfig) *TwilioTexter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioTexter{cfg: cfg, client: client}
}

// Send delivers one SMS.
func (t *TwilioTexter) Send(_ context.Context, to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.cfg.FromNumber)
	params.SetBody(body)
	if t.cfg.ServiceSID != "" {
		params.SetMessagingServiceSid(t.cfg.ServiceSID)
	}

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending SMS: %w", err)
	}
	return nil
}
