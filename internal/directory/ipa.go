// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// apiTimeout bounds every identity management API call. Unbounded waits
// against a degraded IPA server would exhaust the worker pool.
const apiTimeout = 30 * time.Second

// Config carries the connection settings for the IPA directory.
type Config struct {
	LDAPURL      string // ldaps://ipa.example.org
	BindDN       string
	BindPassword string
	UserBase     string // cn=users,cn=accounts,dc=example,dc=org
	APIBaseURL   string // https://ipa.example.org
	LinkedIDAttr string // optional attribute holding a linked external DN
}

// IPAClient implements Client against FreeIPA: LDAP for reads and
// privileged password writes, the JSON-RPC API for OTP tokens, and the
// session change_password endpoint for self-service changes.
type IPAClient struct {
	cfg  Config
	http *http.Client
}

// NewIPAClient creates a directory client from the given configuration.
func NewIPAClient(cfg Config) *IPAClient {
	return &IPAClient{
		cfg:  cfg,
		http: &http.Client{Timeout: apiTimeout},
	}
}

// dial opens and binds a fresh LDAP connection.
func (c *IPAClient) dial() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(c.cfg.LDAPURL, ldap.DialWithDialer(&net.Dialer{Timeout: apiTimeout}))
	if err != nil {
		return nil, fmt.Errorf("dialing directory: %w", err)
	}
	conn.SetTimeout(apiTimeout)
	if err := conn.Bind(c.cfg.BindDN, c.cfg.BindPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("binding to directory: %w", err)
	}
	return conn, nil
}

func (c *IPAClient) userDN(username string) string {
	return fmt.Sprintf("uid=%s,%s", username, c.cfg.UserBase)
}

// Lookup retrieves a member with the attributes used by the recovery flows.
func (c *IPAClient) Lookup(_ context.Context, username string) (*Member, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	attrs := []string{"uid", "mail", "mobile", "telephoneNumber", "memberOf"}
	if c.cfg.LinkedIDAttr != "" {
		attrs = append(attrs, c.cfg.LinkedIDAttr)
	}
	req := ldap.NewSearchRequest(
		c.cfg.UserBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)),
		attrs,
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", username, err)
	}
	if len(res.Entries) == 0 {
		return nil, ErrNotFound
	}

	entry := res.Entries[0]
	member := &Member{
		Username:        entry.GetAttributeValue("uid"),
		Mail:            entry.GetAttributeValues("mail"),
		Mobile:          entry.GetAttributeValues("mobile"),
		TelephoneNumber: entry.GetAttributeValues("telephoneNumber"),
		Groups:          entry.GetAttributeValues("memberOf"),
	}
	if c.cfg.LinkedIDAttr != "" {
		member.LinkedID = entry.GetAttributeValue(c.cfg.LinkedIDAttr)
	}
	return member, nil
}

// SetPassword writes a new password through the privileged bind and clears
// the account lock. IPA flags passwords set this way as expired; the change
// engine follows up with a self-change to clear that flag.
func (c *IPAClient) SetPassword(_ context.Context, username, password string) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	req := ldap.NewModifyRequest(c.userDN(username), nil)
	req.Replace("userPassword", []string{password})
	if err := conn.Modify(req); err != nil {
		return fmt.Errorf("setting password for %q: %w", username, err)
	}

	unlock := ldap.NewModifyRequest(c.userDN(username), nil)
	unlock.Replace("nsaccountlock", []string{"false"})
	if err := conn.Modify(unlock); err != nil {
		return fmt.Errorf("unlocking account %q: %w", username, err)
	}
	return nil
}

// ChangePassword calls the identity management API's change_password
// endpoint. The outcome code arrives in the X-IPA-Pwchange-Result header;
// policy violations carry detail text in X-IPA-Pwchange-Policy-Error.
func (c *IPAClient) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (*ChangeOutcome, error) {
	form := url.Values{
		"user":         {username},
		"old_password": {oldPassword},
		"new_password": {newPassword},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIBaseURL+"/ipa/session/change_password",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling change_password: %w", err)
	}
	defer res.Body.Close()

	outcome := &ChangeOutcome{
		Result: res.Header.Get("X-IPA-Pwchange-Result"),
		Detail: res.Header.Get("X-IPA-Pwchange-Policy-Error"),
	}
	if outcome.Result == "" {
		return nil, fmt.Errorf("change_password returned status %d without a result header", res.StatusCode)
	}
	return outcome, nil
}

// ListMembers returns every account with its display name, for the
// administrative token page.
func (c *IPAClient) ListMembers(_ context.Context) ([]MemberSummary, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(
		c.cfg.UserBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		"(uid=*)",
		[]string{"uid", "displayName"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	members := make([]MemberSummary, 0, len(res.Entries))
	for _, entry := range res.Entries {
		summary := MemberSummary{
			ID:          entry.GetAttributeValue("uid"),
			DisplayName: entry.GetAttributeValue("displayName"),
		}
		if summary.DisplayName == "" {
			summary.DisplayName = summary.ID
		}
		members = append(members, summary)
	}
	return members, nil
}

// AddOTPToken registers a TOTP secret for a user in the directory.
func (c *IPAClient) AddOTPToken(ctx context.Context, username, secret string) error {
	_, err := c.rpc(ctx, "otptoken_add", nil, map[string]any{
		"ipatokenowner":  username,
		"ipatokenotpkey": secret,
	})
	return err
}

// FindOTPTokens returns the ids of all OTP tokens owned by a user.
func (c *IPAClient) FindOTPTokens(ctx context.Context, username string) ([]string, error) {
	raw, err := c.rpc(ctx, "otptoken_find", nil, map[string]any{
		"ipatokenowner": username,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Result []struct {
			IPATokenUniqueID []string `json:"ipatokenuniqueid"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding otptoken_find result: %w", err)
	}

	var ids []string
	for _, token := range result.Result {
		if len(token.IPATokenUniqueID) > 0 {
			ids = append(ids, token.IPATokenUniqueID[0])
		}
	}
	return ids, nil
}

// DeleteOTPToken removes one OTP token by id.
func (c *IPAClient) DeleteOTPToken(ctx context.Context, tokenID string) error {
	_, err := c.rpc(ctx, "otptoken_del", []any{tokenID}, nil)
	return err
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// login obtains an API session cookie using the bind credentials. The
// username is the first RDN value of the bind DN.
func (c *IPAClient) login(ctx context.Context, client *http.Client) error {
	user := c.cfg.BindDN
	if i := strings.Index(user, ","); i >= 0 {
		user = user[:i]
	}
	if i := strings.Index(user, "="); i >= 0 {
		user = user[i+1:]
	}

	form := url.Values{
		"user":     {user},
		"password": {c.cfg.BindPassword},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIBaseURL+"/ipa/session/login_password",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.cfg.APIBaseURL+"/ipa")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("logging in to the API: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("API login returned status %d", res.StatusCode)
	}
	return nil
}

// rpc performs one JSON-RPC call against the API session endpoint.
func (c *IPAClient) rpc(ctx context.Context, method string, args []any, options map[string]any) (json.RawMessage, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: apiTimeout, Jar: jar}

	if err := c.login(ctx, client); err != nil {
		return nil, err
	}

	if args == nil {
		args = []any{}
	}
	if options == nil {
		options = map[string]any{}
	}
	payload := map[string]any{
		"id":     0,
		"method": method,
		"params": []any{args, options},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIBaseURL+"/ipa/session/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", c.cfg.APIBaseURL+"/ipa")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", method, res.StatusCode)
	}

	var rpcRes struct {
		Error  *rpcError       `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rpcRes); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpcRes.Error != nil {
		return nil, fmt.Errorf("%s failed: %s (code %d)", method, rpcRes.Error.Message, rpcRes.Error.Code)
	}
	return rpcRes.Result, nil
}
