// Package domain contains the core concepts of the load-test harness.
// This file defines Identity (a throwaway test account) and Credentials.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const localPartLength = 10

var (
	validate     = validator.New()
	emailCharset = append(append([]rune{}, lo.LowerCaseLettersCharset...), lo.NumbersCharset...)
)

// Identity is a provisioned test account. It is immutable once created.
type Identity struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the identity is usable against the registration endpoint.
func (i Identity) Validate() error {
	return validate.Struct(i)
}

// NewEmail returns a random alphanumeric local-part on the given domain.
// 36^10 combinations keep collisions negligible for thousands of accounts.
func NewEmail(emailDomain string) string {
	return fmt.Sprintf("%s@%s", lo.RandomString(localPartLength, emailCharset), emailDomain)
}

// NewIdentities builds n identities sharing the same password.
func NewIdentities(n int, emailDomain, password string) []Identity {
	if n <= 0 {
		return nil
	}
	return lo.Times(n, func(_ int) Identity {
		return Identity{Email: NewEmail(emailDomain), Password: password}
	})
}

// Credentials is what a successful login yields for an identity.
type Credentials struct {
	Identity Identity
	Token    string
	ID       string
}

// RegisterStatus is the outcome of a successful register call.
type RegisterStatus int

const (
	Created RegisterStatus = iota
	AlreadyExists
)

func (s RegisterStatus) String() string {
	switch s {
	case Created:
		return "created"
	case AlreadyExists:
		return "already-exists"
	default:
		return "unknown"
	}
}
