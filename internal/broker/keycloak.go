// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// configuredMarker appears on the account TOTP page once an authenticator
// is registered. The broker has no structured API for the account TOTP
// flow, so registration state is read off the page itself.
const configuredMarker = "Configured Authenticators"

// invalidCodeMarker appears when the submitted one-time code is rejected.
const invalidCodeMarker = "Invalid authenticator code"

// Config carries the connection settings for the Keycloak broker.
type Config struct {
	BaseURL       string // https://sso.example.org/auth
	Realm         string // realm the accounts live in
	AdminRealm    string // realm of the admin user, usually "master"
	AdminUser     string
	AdminPassword string
	AccountSuffix string // appended to usernames for the user search, e.g. "@example.org"
}

// KeycloakClient implements Client against Keycloak. Admin credentials are
// used to impersonate the target user; the account console's TOTP endpoints
// then carry the actual secret generation and registration.
type KeycloakClient struct {
	cfg Config
}

// NewKeycloakClient creates a broker client from the given configuration.
func NewKeycloakClient(cfg Config) *KeycloakClient {
	if cfg.AdminRealm == "" {
		cfg.AdminRealm = "master"
	}
	return &KeycloakClient{cfg: cfg}
}

// IsRegistered reports whether the user's account TOTP page lists a
// configured authenticator. The device class is implicit in Keycloak's
// account console (one TOTP slot), so device is unused here.
func (c *KeycloakClient) IsRegistered(ctx context.Context, username, _ string) (bool, error) {
	session, err := c.impersonate(ctx, username)
	if err != nil {
		return false, err
	}
	page, err := c.totpPage(ctx, session)
	if err != nil {
		return false, err
	}
	return strings.Contains(page, configuredMarker), nil
}

// GenerateSecret fetches the account TOTP page and extracts the secret the
// broker generated for this setup session.
func (c *KeycloakClient) GenerateSecret(ctx context.Context, username string) (string, error) {
	session, err := c.impersonate(ctx, username)
	if err != nil {
		return "", err
	}
	page, err := c.totpPage(ctx, session)
	if err != nil {
		return "", err
	}
	if strings.Contains(page, configuredMarker) {
		return "", ErrAlreadyExists
	}

	secret := inputValue(page, "totpSecret")
	if secret == "" {
		return "", fmt.Errorf("no TOTP secret on account page: %w", ErrInvalidRequest)
	}
	return secret, nil
}

// Register submits the secret together with a live code. The state checker
// is re-read from a fresh page fetch, so the secret must still belong to an
// open setup session on the broker side.
func (c *KeycloakClient) Register(ctx context.Context, username, secret, code, device string, overwrite bool) error {
	session, err := c.impersonate(ctx, username)
	if err != nil {
		return err
	}
	page, err := c.totpPage(ctx, session)
	if err != nil {
		return err
	}
	if strings.Contains(page, configuredMarker) {
		if !overwrite {
			return ErrAlreadyExists
		}
		if err := c.deleteCredential(ctx, session, page); err != nil {
			return err
		}
		if page, err = c.totpPage(ctx, session); err != nil {
			return err
		}
	}

	stateChecker := inputValue(page, "stateChecker")
	if stateChecker == "" {
		return fmt.Errorf("no state checker on account page: %w", ErrInvalidRequest)
	}

	form := url.Values{
		"userLabel":    {device},
		"stateChecker": {stateChecker},
		"totp":         {code},
		"totpSecret":   {secret},
		"submitAction": {"Save"},
	}
	result, err := c.postTOTPForm(ctx, session, form)
	if err != nil {
		return err
	}

	switch {
	case strings.Contains(result, configuredMarker):
		return nil
	case strings.Contains(result, invalidCodeMarker):
		return ErrInvalidCode
	default:
		return ErrInvalidSecret
	}
}

// Unregister deletes the configured authenticator.
func (c *KeycloakClient) Unregister(ctx context.Context, username, _ string) error {
	session, err := c.impersonate(ctx, username)
	if err != nil {
		return err
	}
	page, err := c.totpPage(ctx, session)
	if err != nil {
		return err
	}
	if !strings.Contains(page, configuredMarker) {
		return ErrNotRegistered
	}

	if err := c.deleteCredential(ctx, session, page); err != nil {
		return err
	}

	check, err := c.totpPage(ctx, session)
	if err != nil {
		return err
	}
	if strings.Contains(check, configuredMarker) {
		return fmt.Errorf("authenticator still present after delete: %w", ErrInvalidRequest)
	}
	return nil
}

func (c *KeycloakClient) deleteCredential(ctx context.Context, session *http.Client, page string) error {
	stateChecker := inputValue(page, "stateChecker")
	credentialID := inputValue(page, "credentialId")
	if stateChecker == "" || credentialID == "" {
		return fmt.Errorf("no deletable credential on account page: %w", ErrInvalidRequest)
	}

	form := url.Values{
		"credentialId": {credentialID},
		"stateChecker": {stateChecker},
		"submitAction": {"Delete"},
	}
	_, err := c.postTOTPForm(ctx, session, form)
	return err
}

// impersonate logs in as the broker admin and opens a session carrying the
// target user's cookies.
func (c *KeycloakClient) impersonate(ctx context.Context, username string) (*http.Client, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := c.findUserID(ctx, token, username)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	session := &http.Client{Timeout: requestTimeout, Jar: jar}

	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s/impersonation", c.cfg.BaseURL, c.cfg.Realm, userID)
	body := fmt.Sprintf(`{"user":%q,"realm":%q}`, userID, c.cfg.Realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("impersonating %q: %w", username, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("impersonation of %q returned status %d", username, res.StatusCode)
	}
	return session, nil
}

func (c *KeycloakClient) adminToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {"admin-cli"},
		"username":   {c.cfg.AdminUser},
		"password":   {c.cfg.AdminPassword},
	}
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.cfg.BaseURL, c.cfg.AdminRealm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: requestTimeout}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting admin token: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("admin token request returned status %d", res.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decoding admin token: %w", err)
	}
	return token.AccessToken, nil
}

func (c *KeycloakClient) findUserID(ctx context.Context, token, username string) (string, error) {
	search := url.QueryEscape(username + c.cfg.AccountSuffix)
	endpoint := fmt.Sprintf("%s/admin/realms/%s/users?first=0&max=20&search=%s", c.cfg.BaseURL, c.cfg.Realm, search)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: requestTimeout}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("searching for user %q: %w", username, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user search returned status %d", res.StatusCode)
	}

	var users []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&users); err != nil {
		return "", fmt.Errorf("decoding user search: %w", err)
	}
	if len(users) == 0 {
		return "", fmt.Errorf("user %q not found at broker: %w", username, ErrInvalidRequest)
	}
	return users[0].ID, nil
}

func (c *KeycloakClient) totpURL() string {
	return fmt.Sprintf("%s/realms/%s/account/totp?mode=manual", c.cfg.BaseURL, c.cfg.Realm)
}

func (c *KeycloakClient) totpPage(ctx context.Context, session *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.totpURL(), nil)
	if err != nil {
		return "", err
	}
	res, err := session.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching account TOTP page: %w", err)
	}
	defer res.Body.Close()
	page, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(page), nil
}

func (c *KeycloakClient) postTOTPForm(ctx context.Context, session *http.Client, form url.Values) (string, error) {
	endpoint := fmt.Sprintf("%s/realms/%s/account/totp", c.cfg.BaseURL, c.cfg.Realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := session.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting account TOTP form: %w", err)
	}
	defer res.Body.Close()
	page, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(page), nil
}

// inputValue extracts the value attribute of the form input with the given
// id from an account page.
func inputValue(page, id string) string {
	re := regexp.MustCompile(`(?s)<input[^>]*id="` + regexp.QuoteMeta(id) + `"[^>]*>`)
	tag := re.FindString(page)
	if tag == "" {
		return ""
	}
	valueRe := regexp.MustCompile(`value="([^"]*)"`)
	m := valueRe.FindStringSubmatch(tag)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
