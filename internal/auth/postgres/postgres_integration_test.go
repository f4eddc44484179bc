// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/auth/postgres"
	"github.com/passgate/passgate/internal/store"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("passgate_test"),
		tcpostgres.WithUsername("passgate"),
		tcpostgres.WithPassword("passgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create migrator: " + err.Error())
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		panic("failed to run migrations: " + err.Error())
	}
	_ = migrator.Close()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create pool: " + err.Error())
	}
	testPool = pool

	code := m.Run()

	pool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newAccount(email string) *auth.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auth.Account{
		ID:           ulid.Make(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAccountRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := newAccount("integration@example.com")
	require.NoError(t, repo.Create(ctx, account))
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
	})

	got, err := repo.GetByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.True(t, account.CreatedAt.Equal(got.CreatedAt))

	dup := newAccount(account.Email)
	assert.ErrorIs(t, repo.Create(ctx, dup), auth.ErrDuplicateKey)

	require.NoError(t, repo.UpdatePassword(ctx, account.ID, "new-hash"))
	require.NoError(t, repo.SetActive(ctx, account.Email, false))
	got, err = repo.GetByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.False(t, got.IsActive)
}

func TestResetTokenRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewResetTokenRepository(testPool)
	email := "reset-integration@example.com"
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, email)
	})

	token := func(hash string) *auth.ResetToken {
		now := time.Now().UTC().Truncate(time.Microsecond)
		return &auth.ResetToken{ID: ulid.Make(), Email: email, TokenHash: hash, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	}

	first := token("h1")
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, token("h2")), auth.ErrDuplicateKey, "partial unique index allows one unused token")

	n, err := repo.InvalidateUnused(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	second := token("h2")
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.Find(ctx, email, "h1")
	require.NoError(t, err)
	assert.True(t, got.Used)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.MarkUsed(ctx, second.ID) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "token is consumed exactly once")
}
