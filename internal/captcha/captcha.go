// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package captcha verifies bot-check proofs with an hCaptcha-compatible
// verification endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier is the bot-check capability consumed by the recovery flow.
type Verifier interface {
	Verify(ctx context.Context, response, remoteIP string) (bool, error)
}

// Config carries the verification endpoint settings.
type Config struct {
	VerifyURL string // e.g. https://hcaptcha.com/siteverify
	Secret    string
	Enabled   bool // disabled skips verification, for local development
}

// HTTPVerifier verifies captcha responses against the configured endpoint.
type HTTPVerifier struct {
	cfg  Config
	http *http.Client
}

// NewHTTPVerifier creates a verifier.
func NewHTTPVerifier(cfg Config) *HTTPVerifier {
	return &HTTPVerifier{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify submits the user's proof and returns the endpoint's verdict.
func (v *HTTPVerifier) Verify(ctx context.Context, response, remoteIP string) (bool, error) {
	if !v.cfg.Enabled {
		return true, nil
	}

	form := url.Values{
		"secret":   {v.cfg.Secret},
		"response": {response},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("verifying captcha: %w", err)
	}
	defer res.Body.Close()

	var verdict struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(res.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("decoding captcha verdict: %w", err)
	}
	return verdict.Success, nil
}
