// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/config"
	"github.com/passgate/passgate/internal/logging"
	"github.com/passgate/passgate/internal/store"
	"github.com/passgate/passgate/internal/xdg"
)

const serviceName = "passgate"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the passgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passgate",
		Short: "Passgate - a minimal authentication service",
		Long: `Passgate registers accounts with hashed passwords, logs them in
directly or through a federated identity provider, and resets
forgotten passwords with single-use tokens.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewAccountCmd())

	return cmd
}

// loadConfig merges the config file, environment and the flags of cmd.
// Without --config, the XDG config file is used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		path, _ = xdg.ConfigFile()
	}
	return config.Loader{Path: path, Flags: cmd.Flags()}.Load()
}

// newLogger builds the logger described by cfg writing to w.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.Setup(serviceName, version, cfg.Log.Format, level, w), nil
}

// openStore opens the backend selected by cfg.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Backend, error) {
	if err := prepareSQLiteDir(cfg); err != nil {
		return nil, err
	}
	return store.Open(ctx, storeOptions(cfg, logger))
}

func storeOptions(cfg *config.Config, logger *slog.Logger) store.Options {
	return store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		AutoMigrate: cfg.Store.AutoMigrate,
		Logger:      logger,
	}
}

// prepareSQLiteDir creates the directory of the SQLite file.
func prepareSQLiteDir(cfg *config.Config) error {
	if cfg.Store.Driver != store.DriverSQLite {
		return nil
	}
	return xdg.EnsureDir(filepath.Dir(cfg.Store.SQLitePath))
}
