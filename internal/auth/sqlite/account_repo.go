// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// AccountRepository implements auth.AccountRepository on SQLite.
type AccountRepository struct {
	db *sql.DB
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_active, federated, created_at, updated_at
		FROM accounts WHERE email = ?
	`, email)

	var (
		idStr              string
		account            auth.Account
		createdAt, updated int64
	)
	err := row.Scan(&idStr, &account.Name, &account.Email, &account.PasswordHash,
		&account.IsActive, &account.Federated, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_ROW_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("email", email).Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").With("id", idStr).Wrap(err)
	}
	account.ID = id
	account.CreatedAt = fromMillis(createdAt)
	account.UpdatedAt = fromMillis(updated)
	return &account, nil
}

// Create inserts a new account. A taken email yields auth.ErrDuplicateKey.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, is_active, federated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, account.ID.String(), account.Name, account.Email, account.PasswordHash,
		account.IsActive, account.Federated, toMillis(account.CreatedAt), toMillis(account.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_EMAIL_EXISTS").With("email", account.Email).Wrap(auth.ErrDuplicateKey)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").With("account_id", account.ID.String()).Wrap(err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, hash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(time.Now()), id.String())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("account_id", id.String()).Wrap(err)
	}
	return requireRow(result, oops.Code("ACCOUNT_ROW_NOT_FOUND").With("account_id", id.String()))
}

// SetActive sets the is_active flag.
func (r *AccountRepository) SetActive(ctx context.Context, email string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = ?, updated_at = ? WHERE email = ?`,
		active, toMillis(time.Now()), email)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("email", email).Wrap(err)
	}
	return requireRow(result, oops.Code("ACCOUNT_ROW_NOT_FOUND").With("email", email))
}

// requireRow returns auth.ErrNotFound wrapped by b when result touched no rows.
func requireRow(result sql.Result, b oops.OopsErrorBuilder) error {
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("SQLITE_ROWS_AFFECTED").Wrap(err)
	}
	if n == 0 {
		return b.Wrap(auth.ErrNotFound)
	}
	return nil
}

var _ auth.AccountRepository = (*AccountRepository)(nil)
