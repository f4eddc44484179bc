// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"errors"

	"github.com/passgate/passgate/pkg/errutil"
)

// Repository contract errors.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// IdentityOracle contract errors.
var (
	// ErrIdentityRejected is returned when the oracle refuses the credential.
	ErrIdentityRejected = errors.New("identity credential rejected")

	// ErrIdentityTimeout is returned when the oracle does not answer in time.
	ErrIdentityTimeout = errors.New("identity verification timed out")
)

// Kind classifies service errors for transports.
type Kind string

// Error kinds.
const (
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindBadRequest   Kind = "bad_request"
	KindNotFound     Kind = "not_found"
	KindTimeout      Kind = "timeout"
	KindInternal     Kind = "internal"
)

// Error codes returned by Service that are not Internal.
const (
	CodeInvalidInput        = "AUTH_INVALID_INPUT"
	CodeEmailTaken          = "AUTH_EMAIL_TAKEN"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeAccountDisabled     = "AUTH_ACCOUNT_DISABLED"
	CodeIdentityRejected    = "AUTH_IDENTITY_REJECTED"
	CodeIdentityTimeout     = "AUTH_IDENTITY_TIMEOUT"
	CodeIdentityNoEmail     = "AUTH_IDENTITY_NO_EMAIL"
	CodeIdentityBadEmail    = "AUTH_IDENTITY_BAD_EMAIL"
	CodeProvisionDenied     = "AUTH_PROVISION_DENIED"
	CodeFederationDisabled  = "AUTH_FEDERATION_DISABLED"
	CodeResetTokenInvalid   = "RESET_TOKEN_INVALID"
	CodeResetTokenUsed      = "RESET_TOKEN_USED"
	CodeResetTokenExpired   = "RESET_TOKEN_EXPIRED"
	CodeResetAccountMissing = "RESET_ACCOUNT_NOT_FOUND"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
)

var codeKinds = map[string]Kind{
	CodeInvalidInput:        KindBadRequest,
	CodeEmailTaken:          KindConflict,
	CodeInvalidCredentials:  KindUnauthorized,
	CodeAccountDisabled:     KindForbidden,
	CodeIdentityRejected:    KindUnauthorized,
	CodeIdentityTimeout:     KindTimeout,
	CodeIdentityNoEmail:     KindBadRequest,
	CodeIdentityBadEmail:    KindBadRequest,
	CodeProvisionDenied:     KindForbidden,
	CodeFederationDisabled:  KindBadRequest,
	CodeResetTokenInvalid:   KindBadRequest,
	CodeResetTokenUsed:      KindBadRequest,
	CodeResetTokenExpired:   KindBadRequest,
	CodeResetAccountMissing: KindNotFound,
	CodeAccountNotFound:     KindNotFound,
}

// KindOf returns the taxonomy kind for err. Errors without a known code are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if kind, ok := codeKinds[errutil.Code(err)]; ok {
		return kind
	}
	return KindInternal
}
