// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
)

// ResetTokenTTL is how long an issued reset token stays valid.
const ResetTokenTTL = time.Hour

// ResetToken is a single-use authorization to change an account's password.
// Only the SHA-256 digest of the token is persisted.
type ResetToken struct {
	ID        ulid.ULID
	Email     string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsExpired reports whether the token has expired at now. Comparison is in UTC.
func (r *ResetToken) IsExpired(now time.Time) bool {
	return now.UTC().After(r.ExpiresAt.UTC())
}

// HashResetToken returns the hex SHA-256 digest stored for a reset token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// ResetTokenRepository manages reset token persistence. Tokens are never deleted.
type ResetTokenRepository interface {
	// Find returns the token issued to email with the given digest, or ErrNotFound.
	Find(ctx context.Context, email, tokenHash string) (*ResetToken, error)

	// InvalidateUnused marks every unused token for email as used and returns the count.
	InvalidateUnused(ctx context.Context, email string) (int64, error)

	// Create stores a new token. Returns ErrDuplicateKey if email already has
	// an unused token.
	Create(ctx context.Context, token *ResetToken) error

	// MarkUsed consumes an unused token. Returns ErrNotFound if the token does
	// not exist or was already used.
	MarkUsed(ctx context.Context, id ulid.ULID) error
}
