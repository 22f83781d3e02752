// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apppass issues application specific passwords: a secondary
// credential for protocols that cannot do two-factor. Only a bcrypt hash
// is stored; the plaintext leaves the process exactly once.
package apppass

import (
	"bufio"
	"context"
	"crypto/rand"
	"embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/clubhouse-org/selfservice/internal/repository"
)

// WordCount is the number of words in a generated passphrase.
const WordCount = 4

const bcryptCost = 10

// ErrExists is returned when the user already holds an app password.
var ErrExists = errors.New("app password already issued")

//go:embed wordlist.txt
var wordlistFS embed.FS

var words []string

func init() {
	file, err := wordlistFS.Open("wordlist.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
}

// Service issues and revokes app passwords.
type Service struct {
	repo *repository.Repository
}

// NewService creates an app password service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Issue generates a passphrase, stores its hash, and returns the plaintext.
// The plaintext is never retrievable again. At most one app password
// exists per user; Issue fails with ErrExists otherwise.
func (s *Service) Issue(ctx context.Context, username string) (string, error) {
	password, err := GeneratePassphrase(WordCount)
	if err != nil {
		return "", fmt.Errorf("generating passphrase: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing passphrase: %w", err)
	}

	if err := s.repo.CreateAppPassword(ctx, username, string(hash)); err != nil {
		if errors.Is(err, repository.ErrExists) {
			return "", ErrExists
		}
		return "", err
	}
	return password, nil
}

// Revoke deletes the user's app password, if any.
func (s *Service) Revoke(ctx context.Context, username string) error {
	return s.repo.DeleteAppPassword(ctx, username)
}

// Has reports whether the user currently holds an app password.
func (s *Service) Has(ctx context.Context, username string) (bool, error) {
	return s.repo.HasAppPassword(ctx, username)
}

// GeneratePassphrase builds a correct-horse-battery-staple style password
// from the embedded wordlist.
func GeneratePassphrase(count int) (string, error) {
	if count <= 0 {
		count = WordCount
	}
	if len(words) == 0 {
		return "", errors.New("wordlist is empty")
	}

	parts := make([]string, count)
	for i := range parts {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
		if err != nil {
			return "", err
		}
		parts[i] = words[n.Int64()]
	}
	return strings.Join(parts, "-"), nil
}
