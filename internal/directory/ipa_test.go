// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package directory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhouse-org/selfservice/internal/directory"
)

func newChangePasswordServer(t *testing.T, result, detail string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ipa/session/change_password", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostForm.Get("user"))

		w.Header().Set("X-IPA-Pwchange-Result", result)
		if detail != "" {
			w.Header().Set("X-IPA-Pwchange-Policy-Error", detail)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChangePassword(t *testing.T) {
	server := newChangePasswordServer(t, directory.ChangeOK, "")
	client := directory.NewIPAClient(directory.Config{APIBaseURL: server.URL})

	outcome, err := client.ChangePassword(context.Background(), "alice", "old", "new")

	require.NoError(t, err)
	assert.Equal(t, directory.ChangeOK, outcome.Result)
	assert.Empty(t, outcome.Detail)
}

func TestChangePassword_InvalidPassword(t *testing.T) {
	server := newChangePasswordServer(t, directory.ChangeInvalidPassword, "")
	client := directory.NewIPAClient(directory.Config{APIBaseURL: server.URL})

	outcome, err := client.ChangePassword(context.Background(), "alice", "wrong", "new")

	require.NoError(t, err)
	assert.Equal(t, directory.ChangeInvalidPassword, outcome.Result)
}

func TestChangePassword_PolicyError(t *testing.T) {
	server := newChangePasswordServer(t, directory.ChangePolicyError, "Password is too recent")
	client := directory.NewIPAClient(directory.Config{APIBaseURL: server.URL})

	outcome, err := client.ChangePassword(context.Background(), "alice", "old", "new")

	require.NoError(t, err)
	assert.Equal(t, directory.ChangePolicyError, outcome.Result)
	assert.Equal(t, "Password is too recent", outcome.Detail)
}

func TestChangePassword_MissingResultHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	client := directory.NewIPAClient(directory.Config{APIBaseURL: server.URL})

	_, err := client.ChangePassword(context.Background(), "alice", "old", "new")

	assert.Error(t, err)
}

// newRPCServer emulates the API session login plus the JSON-RPC endpoint
// used for OTP token management.
func newRPCServer(t *testing.T, handle func(method string, params []any) (any, map[string]any)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ipa/session/login_password", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "binduser", r.PostForm.Get("user"))
		http.SetCookie(w, &http.Cookie{Name: "ipa_session", Value: "s1"})
	})
	mux.HandleFunc("POST /ipa/session/json", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("ipa_session"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		result, rpcErr := handle(payload.Method, payload.Params)
		if rpcErr != nil {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"error": rpcErr}))
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": result, "error": nil}))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func rpcClient(server *httptest.Server) *directory.IPAClient {
	return directory.NewIPAClient(directory.Config{
		APIBaseURL:   server.URL,
		BindDN:       "uid=binduser,cn=users,cn=accounts,dc=clubhouse,dc=example",
		BindPassword: "secret",
	})
}

func TestFindOTPTokens(t *testing.T) {
	server := newRPCServer(t, func(method string, _ []any) (any, map[string]any) {
		require.Equal(t, "otptoken_find", method)
		return map[string]any{
			"result": []map[string]any{
				{"ipatokenuniqueid": []string{"token-1"}},
				{"ipatokenuniqueid": []string{"token-2"}},
			},
		}, nil
	})

	ids, err := rpcClient(server).FindOTPTokens(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, []string{"token-1", "token-2"}, ids)
}

func TestFindOTPTokens_None(t *testing.T) {
	server := newRPCServer(t, func(string, []any) (any, map[string]any) {
		return map[string]any{"result": []map[string]any{}}, nil
	})

	ids, err := rpcClient(server).FindOTPTokens(context.Background(), "alice")

	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAddOTPToken(t *testing.T) {
	var gotMethod string
	server := newRPCServer(t, func(method string, _ []any) (any, map[string]any) {
		gotMethod = method
		return map[string]any{}, nil
	})

	err := rpcClient(server).AddOTPToken(context.Background(), "alice", "JBSWY3DPEHPK3PXP")

	require.NoError(t, err)
	assert.Equal(t, "otptoken_add", gotMethod)
}

func TestDeleteOTPToken_RPCError(t *testing.T) {
	server := newRPCServer(t, func(string, []any) (any, map[string]any) {
		return nil, map[string]any{"code": 4001, "message": "no such entry"}
	})

	err := rpcClient(server).DeleteOTPToken(context.Background(), "token-1")

	assert.ErrorContains(t, err, "no such entry")
}
