// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Supersession retry bounds for concurrent reset requests on one email.
const (
	supersedeAttempts = 3
	supersedeBackoff  = 10 * time.Millisecond
)

// ResetRequest is the outcome of RequestPasswordReset. Token is empty when
// the email is not registered; the rest of the response is identical.
type ResetRequest struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// RequestPasswordReset issues a reset token for a registered email,
// superseding any unused token issued before. The token is returned to the
// caller directly.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (res *ResetRequest, err error) {
	defer s.record("reset_request", &err)

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ResetRequest{}, nil
		}
		return nil, oops.Code("RESET_REQUEST_FAILED").With("operation", "get account").Wrap(err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").With("operation", "generate token").Wrap(err)
	}

	now := s.now().UTC()
	record := &ResetToken{
		ID:        ulid.Make(),
		Email:     email,
		TokenHash: HashResetToken(token),
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	}

	backoff := retry.WithMaxRetries(supersedeAttempts-1, retry.NewConstant(supersedeBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := s.resets.InvalidateUnused(ctx, email); err != nil {
			return err
		}
		if err := s.resets.Create(ctx, record); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				// A concurrent request slipped a token in between; supersede it too.
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").With("operation", "issue token").Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset token issued", "reset_id", record.ID.String())
	return &ResetRequest{Token: token, ExpiresAt: record.ExpiresAt, TTL: ResetTokenTTL}, nil
}

// ResetPassword replaces the password of email's account using a reset token.
// Invalid, used and expired tokens are rejected without touching any state.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) (err error) {
	defer s.record("reset_password", &err)

	email = NormalizeEmail(email)
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return errTokenInvalid()
	}

	record, err := s.resets.Find(ctx, email, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errTokenInvalid()
		}
		return oops.Code("RESET_PASSWORD_FAILED").With("operation", "find token").Wrap(err)
	}
	if record.Used {
		return errTokenUsed(record)
	}
	if record.IsExpired(s.now()) {
		return oops.Code(CodeResetTokenExpired).
			With("reset_id", record.ID.String()).
			With("expired_at", record.ExpiresAt).
			Errorf("token expired")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeResetAccountMissing).Errorf("account not found")
		}
		return oops.Code("RESET_PASSWORD_FAILED").With("operation", "get account").Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}

	// Consume the token first: MarkUsed is conditional, so of two concurrent
	// resets with one token only one gets past this point.
	if err := s.resets.MarkUsed(ctx, record.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errTokenUsed(record)
		}
		return oops.Code("RESET_PASSWORD_FAILED").With("operation", "mark token used").Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("reset_id", record.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset completed", "account_id", account.ID.String())
	return nil
}

func errTokenInvalid() error {
	return oops.Code(CodeResetTokenInvalid).Errorf("invalid token")
}

func errTokenUsed(record *ResetToken) error {
	return oops.Code(CodeResetTokenUsed).With("reset_id", record.ID.String()).Errorf("token used")
}
