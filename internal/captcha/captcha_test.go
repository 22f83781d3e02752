// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package captcha_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhouse-org/selfservice/internal/captcha"
)

func TestVerify(t *testing.T) {
	var gotSecret, gotResponse, gotRemoteIP string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSecret = r.PostForm.Get("secret")
		gotResponse = r.PostForm.Get("response")
		gotRemoteIP = r.PostForm.Get("remoteip")
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer server.Close()

	verifier := captcha.NewHTTPVerifier(captcha.Config{
		VerifyURL: server.URL,
		Secret:    "shared-secret",
		Enabled:   true,
	})

	ok, err := verifier.Verify(context.Background(), "proof", "1.2.3.4")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shared-secret", gotSecret)
	assert.Equal(t, "proof", gotResponse)
	assert.Equal(t, "1.2.3.4", gotRemoteIP)
}

func TestVerify_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error-codes":["invalid-input-response"]}`)
	}))
	defer server.Close()

	verifier := captcha.NewHTTPVerifier(captcha.Config{
		VerifyURL: server.URL,
		Secret:    "shared-secret",
		Enabled:   true,
	})

	ok, err := verifier.Verify(context.Background(), "bad-proof", "")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_Disabled(t *testing.T) {
	verifier := captcha.NewHTTPVerifier(captcha.Config{Enabled: false})

	ok, err := verifier.Verify(context.Background(), "anything", "")

	require.NoError(t, err)
	assert.True(t, ok)
}
