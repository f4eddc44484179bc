// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// ResetTokenRepository implements auth.ResetTokenRepository on SQLite.
type ResetTokenRepository struct {
	db *sql.DB
}

// Find looks up a token by email and digest, whether used or not.
func (r *ResetTokenRepository) Find(ctx context.Context, email, tokenHash string) (*auth.ResetToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, expires_at, used, created_at
		FROM password_reset_tokens WHERE email = ? AND token_hash = ?
	`, email, tokenHash)

	var (
		idStr              string
		token              auth.ResetToken
		expiresAt, created int64
	)
	err := row.Scan(&idStr, &token.Email, &token.TokenHash, &expiresAt, &token.Used, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_SCAN_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
	}
	token.ID = id
	token.ExpiresAt = fromMillis(expiresAt)
	token.CreatedAt = fromMillis(created)
	return &token, nil
}

// InvalidateUnused marks all unused tokens for email as used.
func (r *ResetTokenRepository) InvalidateUnused(ctx context.Context, email string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = 1 WHERE email = ? AND used = 0`, email)
	if err != nil {
		return 0, oops.Code("RESET_INVALIDATE_FAILED").With("email", email).Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.Code("SQLITE_ROWS_AFFECTED").Wrap(err)
	}
	return n, nil
}

// Create stores a new token. It fails with auth.ErrDuplicateKey while another
// unused token exists for the email.
func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.ResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, email, token_hash, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, token.ID.String(), token.Email, token.TokenHash, toMillis(token.ExpiresAt), token.Used, toMillis(token.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("RESET_CONFLICT").With("email", token.Email).Wrap(auth.ErrDuplicateKey)
		}
		return oops.Code("RESET_CREATE_FAILED").With("email", token.Email).Wrap(err)
	}
	return nil
}

// MarkUsed consumes an unused token.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = 1 WHERE id = ? AND used = 0`, id.String())
	if err != nil {
		return oops.Code("RESET_MARK_USED_FAILED").With("id", id.String()).Wrap(err)
	}
	return requireRow(result, oops.Code("RESET_NOT_FOUND").With("id", id.String()))
}

var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
