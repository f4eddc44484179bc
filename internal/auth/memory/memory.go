// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package memory provides in-memory auth repositories for tests and
// single-process deployments. Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/passgate/passgate/internal/auth"
)

// AccountRepository is an in-memory auth.AccountRepository keyed by email.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]auth.Account
}

// NewAccountRepository creates an empty account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]auth.Account)}
}

// GetByEmail returns a copy of the account stored under email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &a, nil
}

// Create stores account. The email must not be registered yet.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Email]; ok {
		return auth.ErrDuplicateKey
	}
	r.accounts[account.Email] = *account
	return nil
}

// UpdatePassword replaces the password hash of the account with id.
func (r *AccountRepository) UpdatePassword(_ context.Context, id ulid.ULID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, a := range r.accounts {
		if a.ID == id {
			a.PasswordHash = hash
			a.UpdatedAt = time.Now().UTC()
			r.accounts[email] = a
			return nil
		}
	}
	return auth.ErrNotFound
}

// SetActive sets the active flag of the account with email.
func (r *AccountRepository) SetActive(_ context.Context, email string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[email]
	if !ok {
		return auth.ErrNotFound
	}
	a.IsActive = active
	a.UpdatedAt = time.Now().UTC()
	r.accounts[email] = a
	return nil
}

// ResetTokenRepository is an in-memory auth.ResetTokenRepository. Like the
// SQL stores it allows at most one unused token per email.
type ResetTokenRepository struct {
	mu     sync.RWMutex
	tokens []auth.ResetToken
}

// NewResetTokenRepository creates an empty reset token repository.
func NewResetTokenRepository() *ResetTokenRepository {
	return &ResetTokenRepository{}
}

// Find returns the token for email whose digest equals tokenHash, used or not.
func (r *ResetTokenRepository) Find(_ context.Context, email, tokenHash string) (*auth.ResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tokens {
		if t.Email == email && t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, auth.ErrNotFound
}

// InvalidateUnused marks every unused token for email as used.
func (r *ResetTokenRepository) InvalidateUnused(_ context.Context, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for i := range r.tokens {
		if r.tokens[i].Email == email && !r.tokens[i].Used {
			r.tokens[i].Used = true
			n++
		}
	}
	return n, nil
}

// Create stores token. It fails with auth.ErrDuplicateKey while another
// unused token exists for the same email.
func (r *ResetTokenRepository) Create(_ context.Context, token *auth.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.ID == token.ID || (t.Email == token.Email && !t.Used && !token.Used) {
			return auth.ErrDuplicateKey
		}
	}
	r.tokens = append(r.tokens, *token)
	return nil
}

// MarkUsed consumes the token with id. Missing and already used tokens both
// return auth.ErrNotFound.
func (r *ResetTokenRepository) MarkUsed(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tokens {
		if r.tokens[i].ID == id && !r.tokens[i].Used {
			r.tokens[i].Used = true
			return nil
		}
	}
	return auth.ErrNotFound
}
