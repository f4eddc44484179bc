// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// FederatedLogin verifies credential with the IdentityOracle and logs in the
// matching local account, provisioning one on first sight of the email.
func (s *Service) FederatedLogin(ctx context.Context, credential string) (res *LoginResult, err error) {
	defer s.record("federated_login", &err)

	if s.oracle == nil {
		return nil, oops.Code(CodeFederationDisabled).Errorf("federated login is not configured")
	}
	if strings.TrimSpace(credential) == "" {
		return nil, invalidInput("credential", "credential is required")
	}

	identity, err := s.verifyIdentity(ctx, credential)
	if err != nil {
		return nil, err
	}

	email := NormalizeEmail(identity.Email)
	if email == "" {
		return nil, oops.Code(CodeIdentityNoEmail).Errorf("identity provider returned no email")
	}
	if ValidateEmail(email) != nil {
		return nil, oops.Code(CodeIdentityBadEmail).Errorf("identity provider returned a malformed email")
	}

	account, err := s.findOrProvision(ctx, email, identity.Name)
	if err != nil {
		return nil, err
	}

	if !account.IsActive {
		return nil, errAccountDisabled(account)
	}
	return s.issueSession(ctx, account)
}

func (s *Service) verifyIdentity(ctx context.Context, credential string) (*Identity, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	identity, err := s.oracle.Verify(verifyCtx, credential)
	if err != nil {
		if errors.Is(err, ErrIdentityTimeout) || errors.Is(verifyCtx.Err(), context.DeadlineExceeded) {
			return nil, oops.Code(CodeIdentityTimeout).
				With("timeout", s.oracleTimeout.String()).
				Errorf("identity provider did not respond in time")
		}
		if !errors.Is(err, ErrIdentityRejected) {
			s.logger.WarnContext(ctx, "identity verification failed", "error", err)
		}
		return nil, oops.Code(CodeIdentityRejected).Errorf("invalid federated credential")
	}
	if identity == nil {
		return nil, oops.Code(CodeIdentityNoEmail).Errorf("identity provider returned no identity")
	}
	return identity, nil
}

func (s *Service) findOrProvision(ctx context.Context, email, name string) (*Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_FEDERATED_FAILED").With("operation", "get account").Wrap(err)
	}

	if s.provision != nil && !s.provision.AllowProvision(email) {
		return nil, oops.Code(CodeProvisionDenied).Errorf("email domain is not allowed to sign up")
	}

	// Federated accounts get a random secret nobody knows, so the password
	// path can never authenticate them.
	secret, err := s.tokens.Generate()
	if err != nil {
		return nil, oops.Code("AUTH_FEDERATED_FAILED").With("operation", "generate secret").Wrap(err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, oops.Code("AUTH_FEDERATED_FAILED").With("operation", "hash secret").Wrap(err)
	}

	account = s.newAccount(provisionedName(name, email), email, hash, true)
	if err := s.accounts.Create(ctx, account); err != nil {
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, oops.Code("AUTH_FEDERATED_FAILED").With("operation", "create account").Wrap(err)
		}
		// Lost a race with a concurrent provision or registration.
		existing, getErr := s.accounts.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, oops.Code("AUTH_FEDERATED_FAILED").With("operation", "reload account").Wrap(getErr)
		}
		return existing, nil
	}

	s.logger.InfoContext(ctx, "federated account provisioned", "account_id", account.ID.String())
	return account, nil
}

// provisionedName picks the oracle-provided name when usable, otherwise
// "User <local-part>".
func provisionedName(name, email string) string {
	name = strings.TrimSpace(name)
	if ValidateName(name) == nil {
		return name
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return string([]rune(name)[:MaxNameLength])
	}
	placeholder := "User " + localPart(email)
	if utf8.RuneCountInString(placeholder) > MaxNameLength {
		placeholder = string([]rune(placeholder)[:MaxNameLength])
	}
	return placeholder
}
