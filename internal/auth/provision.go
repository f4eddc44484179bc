// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// ProvisionPolicy decides whether a federated email may get a new local account.
type ProvisionPolicy interface {
	AllowProvision(email string) bool
}

// DomainAllowlist permits provisioning for emails whose domain matches one of
// its glob patterns (e.g. "example.com", "*.example.org"). An empty list
// allows every domain.
type DomainAllowlist struct {
	patterns []glob.Glob
}

// NewDomainAllowlist compiles the domain patterns.
func NewDomainAllowlist(patterns []string) (*DomainAllowlist, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, oops.Code("PROVISION_PATTERN_INVALID").With("pattern", p).Wrap(err)
		}
		compiled = append(compiled, g)
	}
	return &DomainAllowlist{patterns: compiled}, nil
}

// AllowProvision reports whether email's domain is allowed.
func (d *DomainAllowlist) AllowProvision(email string) bool {
	if len(d.patterns) == 0 {
		return true
	}
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return false
	}
	domain := strings.ToLower(email[i+1:])
	for _, g := range d.patterns {
		if g.Match(domain) {
			return true
		}
	}
	return false
}
