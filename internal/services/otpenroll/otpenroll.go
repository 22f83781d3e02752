// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otpenroll coordinates two-factor enrollment across the identity
// broker and the directory. The two systems share no transaction, so the
// protocol treats "registered anywhere" as the effective truth, logs every
// detected divergence, and never resolves one silently.
package otpenroll

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/url"
	"sync"

	"github.com/pquerna/otp"

	"github.com/clubhouse-org/selfservice/internal/broker"
	"github.com/clubhouse-org/selfservice/internal/directory"
	"github.com/clubhouse-org/selfservice/internal/services/apppass"
)

// Typed outcomes of the enrollment protocol.
var (
	// ErrOTPInvalidCode means the live code did not match the secret. The
	// enrollment stays open; the user retries against the same QR code.
	ErrOTPInvalidCode = errors.New("invalid one-time code")

	// ErrOTPAlreadyConfigured means an authenticator is already registered.
	ErrOTPAlreadyConfigured = errors.New("OTP already configured")

	// ErrOTPNotConfigured means no authenticator is registered.
	ErrOTPNotConfigured = errors.New("OTP not configured")

	// ErrOTPConfigError is the catch-all for unmapped broker outcomes and
	// cross-system failures. Terminal for the current enrollment.
	ErrOTPConfigError = errors.New("OTP configuration error")
)

// Config carries the enrollment identity settings.
type Config struct {
	Issuer        string // issuer label in the provisioning URI
	AccountDomain string // appended to usernames in the URI, e.g. "example.org"
	Device        string // user label for the registered device
}

// Enrollment is the state bridging Begin and Confirm: only the fields
// needed to resume, never a serialized remote session.
type Enrollment struct {
	Username     string
	Secret       string
	Continuation string // provider-issued continuation token, if any
}

// BeginResult is what Begin hands back to the caller.
type BeginResult struct {
	AlreadyConfigured bool   `json:"already_configured"`
	Secret            string `json:"secret,omitempty"`
	URI               string `json:"uri,omitempty"`
	QRCode            string `json:"qr_code,omitempty"` // data:image/png;base64
}

// Status reports the registration state in each system, for manual
// reconciliation when they diverge.
type Status struct {
	Broker      bool `json:"broker"`
	Directory   bool `json:"directory"`
	AppPassword bool `json:"app_password"`
}

// Configured reports whether OTP counts as enabled anywhere.
func (s *Status) Configured() bool {
	return s.Broker || s.Directory
}

// Service drives the enrollment protocol. Pending enrollments live in
// process memory: one outstanding per username, consumed on confirm.
type Service struct {
	broker       broker.Client
	dir          directory.Client
	appPasswords *apppass.Service
	cfg          Config

	mu      sync.Mutex
	pending map[string]*Enrollment
}

// NewService creates an enrollment service.
func NewService(brokerClient broker.Client, dir directory.Client, appPasswords *apppass.Service, cfg Config) *Service {
	if cfg.Device == "" {
		cfg.Device = "Self-Service TOTP"
	}
	return &Service{
		broker:       brokerClient,
		dir:          dir,
		appPasswords: appPasswords,
		cfg:          cfg,
		pending:      make(map[string]*Enrollment),
	}
}

// Begin reports AlreadyConfigured when an authenticator is registered
// anywhere, otherwise requests a fresh secret and returns it with its
// provisioning URI and QR code. Re-running Begin when already configured
// is a status report, not an error.
func (s *Service) Begin(ctx context.Context, username string) (*BeginResult, error) {
	status, err := s.checkConfigured(ctx, username)
	if err != nil {
		return nil, err
	}
	if status.Configured() {
		return &BeginResult{AlreadyConfigured: true}, nil
	}

	secret, err := s.broker.GenerateSecret(ctx, username)
	if errors.Is(err, broker.ErrAlreadyExists) {
		return &BeginResult{AlreadyConfigured: true}, nil
	}
	if err != nil {
		slog.Error("secret generation failed", "username", username, "error", err)
		return nil, ErrOTPConfigError
	}

	uri := s.provisioningURI(username, secret)
	qr, err := qrDataURI(uri)
	if err != nil {
		slog.Error("QR code generation failed", "username", username, "error", err)
		return nil, ErrOTPConfigError
	}

	s.mu.Lock()
	s.pending[username] = &Enrollment{Username: username, Secret: secret}
	s.mu.Unlock()

	return &BeginResult{Secret: secret, URI: uri, QRCode: qr}, nil
}

// Confirm binds the round-tripped secret with a live code, replicates the
// registration into the directory, and issues the app password. The
// plaintext app password is returned exactly once.
func (s *Service) Confirm(ctx context.Context, username, secret, code string) (string, error) {
	s.mu.Lock()
	enrollment := s.pending[username]
	s.mu.Unlock()
	if enrollment == nil || enrollment.Secret != secret {
		return "", fmt.Errorf("no matching enrollment in flight: %w", ErrOTPConfigError)
	}

	err := s.broker.Register(ctx, username, secret, code, s.cfg.Device, false)
	switch {
	case errors.Is(err, broker.ErrInvalidCode):
		// Enrollment stays open for a retry against the same secret.
		return "", ErrOTPInvalidCode
	case errors.Is(err, broker.ErrAlreadyExists):
		s.consume(username)
		return "", ErrOTPAlreadyConfigured
	case errors.Is(err, broker.ErrInvalidSecret), errors.Is(err, broker.ErrInvalidRequest):
		s.consume(username)
		return "", fmt.Errorf("secret rejected: %w", ErrOTPConfigError)
	case err != nil:
		slog.Error("broker registration failed", "username", username, "error", err)
		return "", ErrOTPConfigError
	}
	s.consume(username)

	if err := s.dir.AddOTPToken(ctx, username, secret); err != nil {
		// Broker and directory now disagree. Loud log, no rollback; the
		// caller retries or support reconciles by hand.
		slog.Error("OTP registered at broker but directory write failed",
			"username", username, "error", err)
		return "", ErrOTPConfigError
	}

	password, err := s.issueAppPassword(ctx, username)
	if err != nil {
		slog.Error("OTP enabled but app password issuance failed",
			"username", username, "error", err)
		return "", ErrOTPConfigError
	}

	slog.Info("OTP enrollment completed", "username", username)
	return password, nil
}

// Disable unregisters from the broker, deletes the directory tokens, and
// revokes the app password. The three steps are independent; completed
// steps are never rolled back and every failure is logged with enough
// detail for manual reconciliation.
func (s *Service) Disable(ctx context.Context, username string) error {
	var failed bool

	if err := s.broker.Unregister(ctx, username, s.cfg.Device); err != nil {
		if errors.Is(err, broker.ErrNotRegistered) {
			slog.Info("no authenticator at broker to remove", "username", username)
		} else {
			slog.Error("broker unregistration failed", "username", username, "error", err)
			failed = true
		}
	}

	tokens, err := s.dir.FindOTPTokens(ctx, username)
	if err != nil {
		slog.Error("directory OTP token lookup failed", "username", username, "error", err)
		failed = true
	}
	for _, tokenID := range tokens {
		if err := s.dir.DeleteOTPToken(ctx, tokenID); err != nil {
			slog.Error("directory OTP token deletion failed",
				"username", username, "token_id", tokenID, "error", err)
			failed = true
		}
	}

	if err := s.appPasswords.Revoke(ctx, username); err != nil {
		slog.Error("app password revocation failed", "username", username, "error", err)
		failed = true
	}

	if failed {
		return ErrOTPConfigError
	}
	slog.Info("OTP disabled", "username", username)
	return nil
}

// Status reports the per-system registration state.
func (s *Service) Status(ctx context.Context, username string) (*Status, error) {
	status, err := s.checkConfigured(ctx, username)
	if err != nil {
		return nil, err
	}
	hasAppPassword, err := s.appPasswords.Has(ctx, username)
	if err != nil {
		return nil, err
	}
	status.AppPassword = hasAppPassword
	return status, nil
}

// checkConfigured reads both systems and logs a warning when they
// disagree. A disagreement means a previous run of this very protocol
// failed partway through.
func (s *Service) checkConfigured(ctx context.Context, username string) (*Status, error) {
	brokerRegistered, err := s.broker.IsRegistered(ctx, username, s.cfg.Device)
	if err != nil {
		slog.Error("broker registration check failed", "username", username, "error", err)
		return nil, ErrOTPConfigError
	}

	tokens, err := s.dir.FindOTPTokens(ctx, username)
	if err != nil {
		slog.Warn("directory OTP token lookup failed, proceeding on broker state only",
			"username", username, "error", err)
		return &Status{Broker: brokerRegistered}, nil
	}
	dirRegistered := len(tokens) > 0

	if brokerRegistered != dirRegistered {
		slog.Warn("OTP registration state diverged between broker and directory",
			"username", username,
			"broker", brokerRegistered,
			"directory", dirRegistered,
		)
	}
	return &Status{Broker: brokerRegistered, Directory: dirRegistered}, nil
}

// issueAppPassword issues a fresh app password. A leftover one from an
// earlier partial disable is revoked first, and noted.
func (s *Service) issueAppPassword(ctx context.Context, username string) (string, error) {
	password, err := s.appPasswords.Issue(ctx, username)
	if errors.Is(err, apppass.ErrExists) {
		slog.Warn("stale app password found during enrollment, reissuing", "username", username)
		if err := s.appPasswords.Revoke(ctx, username); err != nil {
			return "", err
		}
		return s.appPasswords.Issue(ctx, username)
	}
	return password, err
}

func (s *Service) consume(username string) {
	s.mu.Lock()
	delete(s.pending, username)
	s.mu.Unlock()
}

// provisioningURI builds the otpauth URL encoded into the QR code.
func (s *Service) provisioningURI(username, secret string) string {
	account := username
	if s.cfg.AccountDomain != "" {
		account = username + "@" + s.cfg.AccountDomain
	}
	query := url.Values{
		"secret": {secret},
		"issuer": {s.cfg.Issuer},
	}
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + s.cfg.Issuer + ":" + account,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// qrDataURI renders the provisioning URI as an inline PNG.
func qrDataURI(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", err
	}
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
