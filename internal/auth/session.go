// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import "context"

// DefaultSessionMarker is returned by StaticSessionIssuer when none is configured.
const DefaultSessionMarker = "demo-token"

// SessionIssuer produces the opaque marker handed back on successful login.
type SessionIssuer interface {
	Issue(ctx context.Context, account *Account) (string, error)
}

// StaticSessionIssuer returns the same marker for every account. It carries
// no bearer semantics.
type StaticSessionIssuer struct {
	Marker string
}

// Issue returns the configured marker.
func (s StaticSessionIssuer) Issue(_ context.Context, _ *Account) (string, error) {
	if s.Marker == "" {
		return DefaultSessionMarker, nil
	}
	return s.Marker, nil
}
