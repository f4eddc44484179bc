// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Input validation constraints.
const (
	MinNameLength     = 2
	MaxNameLength     = 100
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

// Account is a registered identity.
type Account struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	Federated    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository manages account persistence. Emails passed in are
// already normalized.
type AccountRepository interface {
	// GetByEmail returns ErrNotFound when no account has the email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Create stores a new account. Returns ErrDuplicateKey if the email is taken.
	Create(ctx context.Context, account *Account) error

	// UpdatePassword replaces the password hash. Returns ErrNotFound for an unknown id.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetActive toggles the active flag. Returns ErrNotFound for an unknown email.
	SetActive(ctx context.Context, email string, active bool) error
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateName checks a display name after trimming.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return invalidInput("name", "name must be between %d and %d characters", MinNameLength, MaxNameLength)
	}
	return nil
}

// ValidateEmail checks that a normalized email is a single bare address.
func ValidateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLength {
		return invalidInput("email", "email must be between 1 and %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return invalidInput("email", "email is not a valid address")
	}
	return nil
}

// ValidatePassword checks the plaintext password length.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return invalidInput("password", "password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

func invalidInput(field, format string, args ...any) error {
	return oops.Code(CodeInvalidInput).With("field", field).Errorf(format, args...)
}

// localPart returns the portion of an email before the last @.
func localPart(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
