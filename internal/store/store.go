// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package store opens the configured account storage backend and manages the
// PostgreSQL schema.
package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/auth/memory"
	"github.com/passgate/passgate/internal/auth/postgres"
	"github.com/passgate/passgate/internal/auth/sqlite"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Connection retry bounds.
const (
	connectAttempts = 5
	connectBackoff  = 200 * time.Millisecond
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	// AutoMigrate applies pending PostgreSQL migrations on open.
	AutoMigrate bool
	Logger      *slog.Logger
}

// Backend bundles the repositories of one storage driver.
type Backend struct {
	Driver   string
	Accounts auth.AccountRepository
	Resets   auth.ResetTokenRepository

	ping  func(context.Context) error
	close func()
}

// Ping reports whether the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Driver {
	case DriverMemory, "":
		logger.Warn("using in-memory store; data is lost on restart")
		return &Backend{
			Driver:   DriverMemory,
			Accounts: memory.NewAccountRepository(),
			Resets:   memory.NewResetTokenRepository(),
		}, nil

	case DriverSQLite:
		st, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", "path", opts.SQLitePath)
		return &Backend{
			Driver:   DriverSQLite,
			Accounts: st.Accounts(),
			Resets:   st.Resets(),
			ping:     st.Ping,
			close:    func() { _ = st.Close() },
		}, nil

	case DriverPostgres:
		if opts.AutoMigrate {
			if err := migrateUp(opts.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		pool, err := Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres store connected")
		return &Backend{
			Driver:   DriverPostgres,
			Accounts: postgres.NewAccountRepository(pool),
			Resets:   postgres.NewResetTokenRepository(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", opts.Driver).Errorf("unknown store driver %q", opts.Driver)
	}
}

// Connect opens a pgx pool for databaseURL and waits until the database
// answers a ping, retrying with exponential backoff.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database url is required for the postgres driver")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", connectAttempts).
			Wrap(err)
	}
	return pool, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return err
	}
	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("database migrations applied", "version", version)
	return nil
}
