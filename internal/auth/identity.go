// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import "context"

// Identity is a verified assertion about a federated user.
type Identity struct {
	Email string
	Name  string
}

// IdentityOracle verifies an external credential.
//
// Implementations return ErrIdentityRejected (possibly wrapped) when the
// credential is refused and ErrIdentityTimeout when the provider does not
// answer in time.
type IdentityOracle interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}
