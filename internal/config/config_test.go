// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestSplitGroups(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"", nil},
		{"admins", []string{"admins"}},
		{"admins,disabled", []string{"admins", "disabled"}},
		{" admins , disabled ", []string{"admins", "disabled"}},
		{"admins,,disabled,", []string{"admins", "disabled"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, splitGroups(tt.raw), tt.raw)
	}
}

func TestFlags(t *testing.T) {
	flags := Flags()

	assert.NotEmpty(t, flags)

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	assert.True(t, flagNames["host"], "should have host flag")
	assert.True(t, flagNames["port"], "should have port flag")
	assert.True(t, flagNames["database-dsn"], "should have database-dsn flag")
	assert.True(t, flagNames["smtp-host"], "should have smtp-host flag")
	assert.True(t, flagNames["twilio-account-sid"], "should have twilio-account-sid flag")
	assert.True(t, flagNames["directory-ldap-url"], "should have directory-ldap-url flag")
	assert.True(t, flagNames["broker-base-url"], "should have broker-base-url flag")
	assert.True(t, flagNames["oidc-issuer-url"], "should have oidc-issuer-url flag")
	assert.True(t, flagNames["recovery-protected-groups"], "should have recovery-protected-groups flag")
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			// Verify defaults are applied
			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "text", cfg.Log.Format)
			assert.Equal(t, 587, cfg.SMTP.Port)
			assert.Equal(t, "master", cfg.Broker.AdminRealm)
			assert.Equal(t, []string{"admins"}, cfg.Recovery.ProtectedGroups)
			assert.Equal(t, []string{"disabled"}, cfg.Recovery.DisabledGroups)

			// BaseURL is derived from host and port when unset.
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			// The OTP issuer falls back to the organization name.
			assert.Equal(t, cfg.Org.Name, cfg.Org.OTPIssuer)
			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}
