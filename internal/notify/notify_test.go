// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhouse-org/selfservice/internal/notify"
)

type recordingMailer struct {
	to      string
	subject string
	body    string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.to = to
	m.subject = subject
	m.body = body
	return nil
}

type recordingTexter struct {
	to   string
	body string
}

func (t *recordingTexter) Send(_ context.Context, to, body string) error {
	t.to = to
	t.body = body
	return nil
}

func newDispatch(mailer *recordingMailer, texter *recordingTexter) *notify.Dispatch {
	return notify.NewDispatch(mailer, texter, notify.Config{
		OrgName:      "Clubhouse",
		SupportEmail: "help@clubhouse.example",
		BaseURL:      "https://account.clubhouse.example/",
	})
}

func TestEmailToken(t *testing.T) {
	mailer := &recordingMailer{}
	dispatch := newDispatch(mailer, &recordingTexter{})

	err := dispatch.EmailToken(context.Background(), "alice", "alice@gmail.com", "tok-1")

	require.NoError(t, err)
	assert.Equal(t, "alice@gmail.com", mailer.to)
	assert.Equal(t, "Your Requested Account Reset", mailer.subject)
	// The trailing slash on the base URL must not double up in the link.
	assert.Contains(t, mailer.body, "https://account.clubhouse.example/reset?token=tok-1")
	assert.Contains(t, mailer.body, "account 'alice'")
	assert.Contains(t, mailer.body, "help@clubhouse.example")
	assert.Contains(t, mailer.body, "30 minutes")
}

func TestSMSCode(t *testing.T) {
	texter := &recordingTexter{}
	dispatch := newDispatch(&recordingMailer{}, texter)

	err := dispatch.SMSCode(context.Background(), "5551234567", "042137")

	require.NoError(t, err)
	assert.Equal(t, "5551234567", texter.to)
	assert.Equal(t, "Your Clubhouse account recovery PIN is: 042137", texter.body)
}
