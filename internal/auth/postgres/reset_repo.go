// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// ResetTokenRepository implements auth.ResetTokenRepository using PostgreSQL.
// The password_reset_tokens_unused_email index allows one unused token per email.
type ResetTokenRepository struct {
	pool poolIface
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(pool poolIface) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Find looks up a token by email and digest, whether used or not.
func (r *ResetTokenRepository) Find(ctx context.Context, email, tokenHash string) (*auth.ResetToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, token_hash, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE email = $1 AND token_hash = $2
	`, email, tokenHash)

	token, err := scanResetToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// InvalidateUnused marks all unused tokens for email as used.
func (r *ResetTokenRepository) InvalidateUnused(ctx context.Context, email string) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used = TRUE WHERE email = $1 AND NOT used
	`, email)
	if err != nil {
		return 0, oops.Code("RESET_INVALIDATE_FAILED").
			With("operation", "invalidate unused tokens").
			With("email", email).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Create stores a new token. It fails with auth.ErrDuplicateKey while another
// unused token exists for the email.
func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.ResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, email, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID.String(), token.Email, token.TokenHash, token.ExpiresAt, token.Used, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("RESET_CONFLICT").With("email", token.Email).Wrap(auth.ErrDuplicateKey)
		}
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert reset token").
			With("email", token.Email).
			Wrap(err)
	}
	return nil
}

// MarkUsed consumes an unused token. Missing and already used tokens both
// return auth.ErrNotFound.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used = TRUE WHERE id = $1 AND NOT used
	`, id.String())
	if err != nil {
		return oops.Code("RESET_MARK_USED_FAILED").
			With("operation", "mark token used").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RESET_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanResetToken(row pgx.Row) (*auth.ResetToken, error) {
	var (
		idStr     string
		token     auth.ResetToken
		expiresAt time.Time
		createdAt time.Time
	)
	err := row.Scan(&idStr, &token.Email, &token.TokenHash, &expiresAt, &token.Used, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers add context
		}
		return nil, oops.Code("RESET_SCAN_FAILED").With("operation", "scan reset token").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
	}
	token.ID = id
	token.ExpiresAt = expiresAt.UTC()
	token.CreatedAt = createdAt.UTC()
	return &token, nil
}

var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
