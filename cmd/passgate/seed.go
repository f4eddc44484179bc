// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/config"
	"github.com/passgate/passgate/internal/seed"
	"github.com/passgate/passgate/internal/store"
)

// Default timeout for seed and account commands.
const defaultAdminTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file     string
	timeout  time.Duration
	validate bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register accounts from a seed file",
		Long: `Registers the accounts listed in a YAML seed file. Accounts whose
email is already registered are skipped, so the command is idempotent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.file, "file", "f", "", "seed file (YAML)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultAdminTimeout, "timeout for store operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.validate, "validate-only", false, "validate the seed file and exit")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(cmd *cobra.Command, sc *seedConfig) error {
	data, err := os.ReadFile(sc.file)
	if err != nil {
		return oops.Code("SEED_INVALID").With("file", sc.file).Wrap(err)
	}
	file, err := seed.Parse(data)
	if err != nil {
		return oops.With("file", sc.file).Wrap(err)
	}
	if sc.validate {
		cmd.Printf("%s: valid (%d accounts)\n", sc.file, len(file.Accounts))
		return nil
	}

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

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
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

	res, err := seed.Apply(ctx, svc, file, logger)
	if err != nil {
		return err
	}
	cmd.Printf("Seeding complete: %d created, %d skipped\n", res.Created, res.Skipped)
	return nil
}

// requirePersistentStore rejects the memory driver for commands whose effect
// would vanish when the process exits.
func requirePersistentStore(cfg *config.Config) error {
	if cfg.Store.Driver == store.DriverMemory {
		return oops.Code("CONFIG_INVALID").
			With("store.driver", cfg.Store.Driver).
			Errorf("this command needs a persistent store; set --store-driver to sqlite or postgres")
	}
	return nil
}
