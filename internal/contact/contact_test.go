// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clubhouse-org/selfservice/internal/contact"
	"github.com/clubhouse-org/selfservice/internal/directory"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		addr   string
		want   string
		wantOK bool
	}{
		{"alice@gmail.com", "a...e@gmail.com", true},
		{"a@gmail.com", "a...a@gmail.com", true},
		{"bob.smith@corp.example", "b...h@corp.example", true},
		{"no-at-sign", "", false},
		{"@gmail.com", "", false},
		{"alice@", "", false},
	}

	for _, tt := range tests {
		got, ok := contact.MaskEmail(tt.addr)
		assert.Equal(t, tt.wantOK, ok, tt.addr)
		assert.Equal(t, tt.want, got, tt.addr)
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "(XXX) XXX-4567", contact.MaskPhone("5551234567"))
}

func TestFromMember(t *testing.T) {
	resolver := contact.NewResolver(nil, "clubhouse.example")

	methods := resolver.FromMember(&directory.Member{
		Username:        "alice",
		Mail:            []string{"alice@gmail.com", "alice@clubhouse.example"},
		Mobile:          []string{"(555) 123-4567"},
		TelephoneNumber: []string{"555-987-6543", "+49 30 1234567"},
	})

	require := assert.New(t)
	require.Len(methods.Email, 1)
	require.Equal("alice@gmail.com", methods.Email[0].Data)

	// The international number does not strip to ten digits and is dropped.
	require.Len(methods.Phone, 2)
	require.Equal("5551234567", methods.Phone[0].Data)
	require.Equal("5559876543", methods.Phone[1].Data)
	require.Equal("(XXX) XXX-6543", methods.Phone[1].Display)
}

func TestFromMember_LinkedID(t *testing.T) {
	resolver := contact.NewResolver(nil, "")

	methods := resolver.FromMember(&directory.Member{
		Username: "alice",
		LinkedID: "uid=alice.ext,cn=users,dc=partner,dc=example",
	})

	assert.Equal(t, "alice.ext", methods.LinkedID)
	assert.True(t, methods.Empty())
}

func TestMethodsEmpty(t *testing.T) {
	assert.True(t, (&contact.Methods{}).Empty())
	assert.False(t, (&contact.Methods{Email: []contact.Method{{}}}).Empty())
	assert.False(t, (&contact.Methods{Phone: []contact.Method{{}}}).Empty())
}
