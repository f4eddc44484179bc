// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/config"
	"github.com/passgate/passgate/internal/identity"
	"github.com/passgate/passgate/internal/store"
)

// newAuthService wires the auth service for cfg on top of backend.
// recorder may be nil.
func newAuthService(cfg *config.Config, backend *store.Backend, logger *slog.Logger, recorder auth.EventRecorder) (*auth.Service, error) {
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithSessionIssuer(auth.StaticSessionIssuer{Marker: cfg.Session.Marker}),
		auth.WithOracleTimeout(cfg.Identity.Timeout),
	}
	if recorder != nil {
		opts = append(opts, auth.WithEventRecorder(recorder))
	}

	if cfg.FederationEnabled() {
		oracle, err := identity.NewHTTPOracle(cfg.Identity.TokenInfoURL,
			identity.WithAudience(cfg.Identity.Audience),
			identity.WithTimeout(cfg.Identity.Timeout))
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth.WithOracle(oracle))
		logger.Info("federated login enabled", "tokeninfo_url", cfg.Identity.TokenInfoURL)
	}

	if len(cfg.Provision.AllowedDomains) > 0 {
		policy, err := auth.NewDomainAllowlist(cfg.Provision.AllowedDomains)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("operation", "compile allowed domains").Wrap(err)
		}
		opts = append(opts, auth.WithProvisionPolicy(policy))
	}

	svc, err := auth.NewService(backend.Accounts, backend.Resets, auth.NewArgon2idHasher(), auth.NewRandomTokenGenerator(), opts...)
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	return svc, nil
}
