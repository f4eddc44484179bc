// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/auth"
)

// NewAccountCmd creates the account administration subcommand.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect and enable or disable accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show EMAIL",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "activate EMAIL",
		Short: "Allow an account to log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountSetActive(cmd, args[0], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate EMAIL",
		Short: "Block an account from logging in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountSetActive(cmd, args[0], false)
		},
	})

	return cmd
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	return withAccountService(cmd, func(ctx context.Context, env *accountEnv) error {
		account, err := env.accounts.GetByEmail(ctx, auth.NormalizeEmail(args[0]))
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return oops.Code(auth.CodeAccountNotFound).With("email", args[0]).Errorf("account not found")
			}
			return oops.Code("ACCOUNT_LOOKUP_FAILED").Wrap(err)
		}

		cmd.Printf("ID:        %s\n", account.ID)
		cmd.Printf("Name:      %s\n", account.Name)
		cmd.Printf("Email:     %s\n", account.Email)
		cmd.Printf("Active:    %t\n", account.IsActive)
		cmd.Printf("Federated: %t\n", account.Federated)
		cmd.Printf("Created:   %s\n", account.CreatedAt.UTC().Format(time.RFC3339))
		return nil
	})
}

func runAccountSetActive(cmd *cobra.Command, email string, active bool) error {
	return withAccountService(cmd, func(ctx context.Context, env *accountEnv) error {
		if err := env.svc.SetAccountActive(ctx, email, active); err != nil {
			return err
		}
		state := "deactivated"
		if active {
			state = "activated"
		}
		cmd.Printf("Account %s %s\n", auth.NormalizeEmail(email), state)
		return nil
	})
}

type accountEnv struct {
	svc      *auth.Service
	accounts auth.AccountRepository
}

func withAccountService(cmd *cobra.Command, fn func(ctx context.Context, env *accountEnv) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requirePersistentStore(cfg); err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultAdminTimeout)
	defer cancel()

	backend, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc, err := newAuthService(cfg, backend, logger, nil)
	if err != nil {
		return err
	}
	return fn(ctx, &accountEnv{svc: svc, accounts: backend.Accounts})
}
