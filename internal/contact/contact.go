// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package contact resolves the verification channels available for an
// account: masked external email addresses and masked phone numbers. Pure
// read against the directory, no caching.
package contact

import (
	"context"
	"regexp"
	"strings"

	"github.com/clubhouse-org/selfservice/internal/directory"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Method is one verification channel: the real address or number, and the
// masked form shown to the user.
type Method struct {
	Data    string `json:"-"`
	Display string `json:"display"`
}

// Methods lists every channel usable to verify ownership of an account.
type Methods struct {
	Email    []Method `json:"email"`
	Phone    []Method `json:"phone"`
	LinkedID string   `json:"linked_id,omitempty"`
}

// Empty reports whether no verification channel is available at all.
func (m *Methods) Empty() bool {
	return len(m.Email) == 0 && len(m.Phone) == 0
}

// Resolver reads verification channels from the directory.
type Resolver struct {
	dir        directory.Client
	selfDomain string
}

// NewResolver creates a resolver. selfDomain is the organization's own mail
// domain; addresses there are excluded since they are unreachable exactly
// when the account is locked out.
func NewResolver(dir directory.Client, selfDomain string) *Resolver {
	return &Resolver{dir: dir, selfDomain: selfDomain}
}

// Resolve returns the verification channels for a username. Directory
// errors pass through, including directory.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, username string) (*Methods, error) {
	member, err := r.dir.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return r.FromMember(member), nil
}

// FromMember derives the channels from an already-fetched member record.
func (r *Resolver) FromMember(member *directory.Member) *Methods {
	methods := &Methods{}

	for _, addr := range member.Mail {
		if r.selfDomain != "" && strings.Contains(addr, r.selfDomain) {
			continue
		}
		display, ok := MaskEmail(addr)
		if !ok {
			continue
		}
		methods.Email = append(methods.Email, Method{Data: addr, Display: display})
	}

	for _, number := range append(append([]string{}, member.Mobile...), member.TelephoneNumber...) {
		stripped := nonDigits.ReplaceAllString(number, "")
		if len(stripped) != 10 {
			continue
		}
		methods.Phone = append(methods.Phone, Method{
			Data:    stripped,
			Display: MaskPhone(stripped),
		})
	}

	if member.LinkedID != "" {
		methods.LinkedID = linkedHint(member.LinkedID)
	}

	return methods
}

// MaskEmail masks an address as first-char...last-char@domain. The second
// return value is false for addresses without a local part and domain.
func MaskEmail(addr string) (string, bool) {
	name, domain, ok := strings.Cut(addr, "@")
	if !ok || name == "" || domain == "" {
		return "", false
	}
	return name[:1] + "..." + name[len(name)-1:] + "@" + domain, true
}

// MaskPhone displays a 10-digit number as its last four digits behind a
// fixed mask prefix.
func MaskPhone(stripped string) string {
	return "(XXX) XXX-" + stripped[len(stripped)-4:]
}

// linkedHint extracts the identity hint from a linked DN: the value of its
// first RDN.
func linkedHint(dn string) string {
	rdn := dn
	if i := strings.Index(rdn, ","); i >= 0 {
		rdn = rdn[:i]
	}
	if i := strings.Index(rdn, "="); i >= 0 {
		rdn = rdn[i+1:]
	}
	return rdn
}
