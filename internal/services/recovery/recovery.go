// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package recovery implements the recovery session state machine: username
// to channel selection to token issuance to verification to reset. All
// durable state lives in the repository; each operation is one short-lived
// request and concurrency control reduces to the store's issuance guard.
package recovery

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/clubhouse-org/selfservice/internal/captcha"
	"github.com/clubhouse-org/selfservice/internal/contact"
	"github.com/clubhouse-org/selfservice/internal/directory"
	"github.com/clubhouse-org/selfservice/internal/models"
	"github.com/clubhouse-org/selfservice/internal/notify"
	"github.com/clubhouse-org/selfservice/internal/repository"
)

// MinPasswordLength is the local minimum for new passwords. The directory
// enforces the full policy; this check avoids a doomed remote call.
const MinPasswordLength = 12

// Resetter is the slice of the change engine the reset transition needs.
type Resetter interface {
	Reset(ctx context.Context, username, password string) error
}

// Policy names the directory groups excluded from self-service recovery.
type Policy struct {
	// ProtectedGroups are staff groups that must use a different channel.
	ProtectedGroups []string
	// DisabledGroups are groups whose members lost account access.
	DisabledGroups []string
}

// Service drives the recovery session state machine.
type Service struct {
	repo     *repository.Repository
	dir      directory.Client
	resolver *contact.Resolver
	dispatch notify.Dispatcher
	verifier captcha.Verifier
	resetter Resetter
	policy   Policy
	now      func() time.Time
}

// NewService creates a recovery service.
func NewService(
	repo *repository.Repository,
	dir directory.Client,
	resolver *contact.Resolver,
	dispatch notify.Dispatcher,
	verifier captcha.Verifier,
	resetter Resetter,
	policy Policy,
) *Service {
	return &Service{
		repo:     repo,
		dir:      dir,
		resolver: resolver,
		dispatch: dispatch,
		verifier: verifier,
		resetter: resetter,
		policy:   policy,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Only tests use this.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Start verifies the bot check, checks eligibility, and opens a recovery
// session for the claimed username.
func (s *Service) Start(ctx context.Context, username, captchaResponse, remoteIP string) (*models.RecoverySession, error) {
	ok, err := s.verifier.Verify(ctx, captchaResponse, remoteIP)
	if err != nil {
		slog.Warn("captcha verification error", "error", err)
		return nil, ErrCaptchaFailed
	}
	if !ok {
		return nil, ErrCaptchaFailed
	}

	member, err := s.dir.Lookup(ctx, username)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		slog.Error("directory lookup failed", "username", username, "error", err)
		return nil, ErrAccountNotFound
	}

	for _, group := range s.policy.ProtectedGroups {
		if member.InGroup(group) {
			return nil, fmt.Errorf("staff account: %w", ErrForbidden)
		}
	}
	for _, group := range s.policy.DisabledGroups {
		if member.InGroup(group) {
			return nil, fmt.Errorf("recovery disabled: %w", ErrForbidden)
		}
	}

	session, err := s.repo.CreateRecoverySession(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("creating recovery session: %w", err)
	}
	slog.Info("recovery session started", "username", username, "session", session.ID)
	return session, nil
}

// session loads a live session, treating unknown ids the same as expired
// ones so that session ids cannot be probed.
func (s *Service) session(ctx context.Context, sessionID string) (*models.RecoverySession, error) {
	session, err := s.repo.GetRecoverySession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Methods lists the verification channels available to the session's
// account.
func (s *Service) Methods(ctx context.Context, sessionID string) (*contact.Methods, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	methods, err := s.resolver.Resolve(ctx, session.Username)
	if err != nil {
		return nil, fmt.Errorf("resolving methods: %w", err)
	}
	if methods.Empty() {
		return nil, ErrNoRecoveryMethod
	}
	return methods, nil
}

// SendEmail issues the session's reset token and mails it to the selected
// address. A delivery failure does not invalidate the token.
func (s *Service) SendEmail(ctx context.Context, sessionID string, index int) error {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}

	methods, err := s.resolver.Resolve(ctx, session.Username)
	if err != nil {
		return fmt.Errorf("resolving methods: %w", err)
	}
	if index < 0 || index >= len(methods.Email) {
		return ErrNoRecoveryMethod
	}

	token, err := s.repo.CreateResetToken(ctx, session)
	if errors.Is(err, repository.ErrAlreadyIssued) {
		return ErrTokenAlreadyIssued
	}
	if err != nil {
		return fmt.Errorf("issuing reset token: %w", err)
	}

	address := methods.Email[index].Data
	if err := s.dispatch.EmailToken(ctx, session.Username, address, token.Token); err != nil {
		slog.Error("failed to send recovery email", "session", session.ID, "error", err)
		return ErrDeliveryFailed
	}
	slog.Info("recovery email sent", "username", session.Username, "session", session.ID)
	return nil
}

// SendPhoneCode issues the session's verification PIN and texts it to the
// selected number.
func (s *Service) SendPhoneCode(ctx context.Context, sessionID string, index int) error {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}

	methods, err := s.resolver.Resolve(ctx, session.Username)
	if err != nil {
		return fmt.Errorf("resolving methods: %w", err)
	}
	if index < 0 || index >= len(methods.Phone) {
		return ErrNoRecoveryMethod
	}

	code, err := GeneratePIN()
	if err != nil {
		return fmt.Errorf("generating PIN: %w", err)
	}

	if _, err := s.repo.CreatePhoneVerification(ctx, session, code); err != nil {
		if errors.Is(err, repository.ErrAlreadyIssued) {
			return ErrTokenAlreadyIssued
		}
		return fmt.Errorf("storing verification code: %w", err)
	}

	number := methods.Phone[index].Data
	if err := s.dispatch.SMSCode(ctx, number, code); err != nil {
		slog.Error("failed to send verification SMS", "session", session.ID, "error", err)
		return ErrDeliveryFailed
	}
	slog.Info("verification SMS sent", "username", session.Username, "session", session.ID)
	return nil
}

// VerifyPhoneCode compares the submitted code against the stored one. On
// match it mints the session's reset token (or returns the existing one)
// and returns the token value.
func (s *Service) VerifyPhoneCode(ctx context.Context, sessionID, submitted string) (string, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return "", err
	}

	verification, err := s.repo.GetPhoneVerification(ctx, session.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}

	if subtle.ConstantTimeCompare([]byte(submitted), []byte(verification.Code)) != 1 {
		return "", ErrCodeMismatch
	}

	token, err := s.repo.GetResetTokenBySession(ctx, session.ID)
	if errors.Is(err, repository.ErrNotFound) {
		token, err = s.repo.CreateVerifiedResetToken(ctx, session)
	}
	if err != nil {
		return "", fmt.Errorf("minting reset token: %w", err)
	}
	slog.Info("phone code verified", "username", session.Username, "session", session.ID)
	return token.Token, nil
}

// ValidToken reports whether a token value currently authorizes a reset.
func (s *Service) ValidToken(ctx context.Context, value string) bool {
	token, err := s.repo.GetResetTokenByValue(ctx, value)
	if err != nil {
		return false
	}
	return token.Usable(s.now())
}

// Reset sets a new password for the token's account and consumes the
// token. A remote failure leaves the token unused so the user can retry.
func (s *Service) Reset(ctx context.Context, tokenValue, password, confirm string) error {
	token, err := s.repo.GetResetTokenByValue(ctx, tokenValue)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	if !token.Usable(s.now()) {
		return ErrTokenInvalid
	}

	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if err := s.resetter.Reset(ctx, token.Username, password); err != nil {
		slog.Error("password reset failed", "username", token.Username, "error", err)
		return ErrResetFailed
	}

	if err := s.repo.MarkResetTokenUsed(ctx, token.ID); err != nil {
		// The password did change; the token must not stay replayable.
		slog.Error("failed to mark reset token used", "token_id", token.ID, "error", err)
		return fmt.Errorf("consuming reset token: %w", err)
	}
	slog.Info("password reset completed", "username", token.Username)
	return nil
}

// AdminIssue creates a session and immediately mints its reset token for a
// target account, bypassing identity verification. actor is the admin
// performing the override; every call is logged.
func (s *Service) AdminIssue(ctx context.Context, actor, username string) (*models.ResetToken, error) {
	if _, err := s.dir.Lookup(ctx, username); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}

	session, err := s.repo.CreateRecoverySession(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("creating recovery session: %w", err)
	}
	token, err := s.repo.CreateResetToken(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("issuing reset token: %w", err)
	}

	slog.Warn("admin override reset token issued",
		"actor", actor,
		"target", username,
		"session", session.ID,
	)
	return token, nil
}

// AdminSession is one row of the administrative session listing.
type AdminSession struct {
	Username       string     `json:"username"`
	SessionCreated time.Time  `json:"session_created"`
	TokenCreated   *time.Time `json:"token_created,omitempty"`
	Used           *bool      `json:"used,omitempty"`
	Expired        bool       `json:"expired"`
}

// RecentSessions lists the 20 most recent recovery sessions with their
// token state for the admin page.
func (s *Service) RecentSessions(ctx context.Context) ([]AdminSession, error) {
	overviews, err := s.repo.RecentSessions(ctx, 20)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sessions := make([]AdminSession, len(overviews))
	for i, o := range overviews {
		expired := false
		if o.TokenCreated == nil {
			expired = now.Sub(o.SessionCreated) > models.SessionTTL
		} else {
			expired = now.Sub(*o.TokenCreated) > models.ResetTokenTTL
		}
		sessions[i] = AdminSession{
			Username:       o.Username,
			SessionCreated: o.SessionCreated,
			TokenCreated:   o.TokenCreated,
			Used:           o.Used,
			Expired:        expired,
		}
	}
	return sessions, nil
}

// GeneratePIN returns a six-digit zero-padded code drawn uniformly from
// 000001 to 999999.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(999999))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+1), nil
}
