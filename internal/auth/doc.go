// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package auth implements the credential and reset-token lifecycle for Passgate.
//
// # Domain Types
//
//   - Account - a registered identity keyed by normalized email
//   - ResetToken - a single-use, time-limited authorization to change a password
//   - Identity - the verified assertion returned by an IdentityOracle
//
// # Collaborators
//
// Service depends only on interfaces: AccountRepository, ResetTokenRepository,
// PasswordHasher, TokenGenerator, and optionally IdentityOracle and SessionIssuer.
// Storage backends live in the memory, sqlite and postgres subpackages.
//
// # Errors
//
// Every error returned by Service is an oops error with a stable code.
// KindOf maps a code onto the service error taxonomy (Conflict, Unauthorized,
// Forbidden, BadRequest, NotFound, Timeout, Internal).
package auth
