// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeycloak emulates the handful of endpoints the client touches:
// admin token, user search, impersonation, and the account TOTP page.
type fakeKeycloak struct {
	mux        *http.ServeMux
	configured bool
	secret     string
	validCode  string
}

func newFakeKeycloak(t *testing.T) (*fakeKeycloak, *httptest.Server) {
	t.Helper()
	fake := &fakeKeycloak{
		mux:       http.NewServeMux(),
		secret:    "JBSWY3DPEHPK3PXP",
		validCode: "123456",
	}

	fake.mux.HandleFunc("POST /realms/master/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"admin-token"}`)
	})
	fake.mux.HandleFunc("GET /admin/realms/clubhouse/users", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"id":"user-1"}]`)
	})
	fake.mux.HandleFunc("POST /admin/realms/clubhouse/users/user-1/impersonation", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "KEYCLOAK_SESSION", Value: "impersonated"})
		fmt.Fprint(w, `{}`)
	})
	fake.mux.HandleFunc("GET /realms/clubhouse/account/totp", func(w http.ResponseWriter, r *http.Request) {
		fake.writePage(w)
	})
	fake.mux.HandleFunc("POST /realms/clubhouse/account/totp", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.PostForm.Get("submitAction") {
		case "Save":
			if r.PostForm.Get("stateChecker") != "state-1" || r.PostForm.Get("totpSecret") != fake.secret {
				fmt.Fprint(w, `<html><body>Error</body></html>`)
				return
			}
			if r.PostForm.Get("totp") != fake.validCode {
				fmt.Fprint(w, `<html><body>Invalid authenticator code</body></html>`)
				return
			}
			fake.configured = true
		case "Delete":
			if r.PostForm.Get("credentialId") == "cred-1" {
				fake.configured = false
			}
		}
		fake.writePage(w)
	})

	server := httptest.NewServer(fake.mux)
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeKeycloak) writePage(w http.ResponseWriter) {
	if f.configured {
		fmt.Fprintf(w, `<html><body><h2>Configured Authenticators</h2>
<input type="hidden" id="stateChecker" name="stateChecker" value="state-1">
<input type="hidden" id="credentialId" name="credentialId" value="cred-1">
</body></html>`)
		return
	}
	fmt.Fprintf(w, `<html><body>
<input type="hidden" id="totpSecret" name="totpSecret" value="%s">
<input type="hidden" id="stateChecker" name="stateChecker" value="state-1">
</body></html>`, f.secret)
}

func newTestClient(server *httptest.Server) *KeycloakClient {
	return NewKeycloakClient(Config{
		BaseURL:       server.URL,
		Realm:         "clubhouse",
		AdminUser:     "admin",
		AdminPassword: "admin",
		AccountSuffix: "@clubhouse.example",
	})
}

func TestGenerateSecret(t *testing.T) {
	_, server := newFakeKeycloak(t)
	client := newTestClient(server)

	secret, err := client.GenerateSecret(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", secret)
}

func TestGenerateSecret_AlreadyConfigured(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	fake.configured = true
	client := newTestClient(server)

	_, err := client.GenerateSecret(context.Background(), "alice")

	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRegister(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	client := newTestClient(server)

	err := client.Register(context.Background(), "alice", fake.secret, "123456", "Phone", false)

	require.NoError(t, err)
	assert.True(t, fake.configured)
}

func TestRegister_InvalidCode(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	client := newTestClient(server)

	err := client.Register(context.Background(), "alice", fake.secret, "999999", "Phone", false)

	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.False(t, fake.configured)
}

func TestRegister_StaleSecret(t *testing.T) {
	_, server := newFakeKeycloak(t)
	client := newTestClient(server)

	err := client.Register(context.Background(), "alice", "STALESECRET", "123456", "Phone", false)

	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestRegister_AlreadyConfigured(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	fake.configured = true
	client := newTestClient(server)

	err := client.Register(context.Background(), "alice", fake.secret, "123456", "Phone", false)

	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRegister_Overwrite(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	fake.configured = true
	client := newTestClient(server)

	err := client.Register(context.Background(), "alice", fake.secret, "123456", "Phone", true)

	require.NoError(t, err)
	assert.True(t, fake.configured)
}

func TestIsRegistered(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	client := newTestClient(server)

	registered, err := client.IsRegistered(context.Background(), "alice", "Phone")
	require.NoError(t, err)
	assert.False(t, registered)

	fake.configured = true

	registered, err = client.IsRegistered(context.Background(), "alice", "Phone")
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestUnregister(t *testing.T) {
	fake, server := newFakeKeycloak(t)
	fake.configured = true
	client := newTestClient(server)

	err := client.Unregister(context.Background(), "alice", "Phone")

	require.NoError(t, err)
	assert.False(t, fake.configured)
}

func TestUnregister_NotRegistered(t *testing.T) {
	_, server := newFakeKeycloak(t)
	client := newTestClient(server)

	err := client.Unregister(context.Background(), "alice", "Phone")

	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestInputValue(t *testing.T) {
	page := `<form><input type="hidden" id="totpSecret" name="totpSecret" value="ABC123">
<input id="empty" value=""></form>`

	assert.Equal(t, "ABC123", inputValue(page, "totpSecret"))
	assert.Equal(t, "", inputValue(page, "empty"))
	assert.Equal(t, "", inputValue(page, "missing"))
}
