// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/oklog/ulid/v2"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/store"
)

var _ = Describe("PostgreSQL storage", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("passgate_test"),
			postgres.WithUsername("passgate"),
			postgres.WithPassword("passgate"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Migrator", func() {
		It("walks the full migration cycle", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer migrator.Close()

			version, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
			Expect(dirty).To(BeFalse())

			Expect(migrator.Up()).To(Succeed())
			status, err := migrator.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Current).To(Equal(uint(2)))
			Expect(status.Pending).To(BeEmpty())

			Expect(migrator.Steps(-1)).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(uint(1)))

			Expect(migrator.Down()).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
		})
	})

	Describe("Open", func() {
		It("migrates and serves repositories", func() {
			backend, err := store.Open(ctx, store.Options{
				Driver:      store.DriverPostgres,
				DatabaseURL: connStr,
				AutoMigrate: true,
			})
			Expect(err).NotTo(HaveOccurred())
			defer backend.Close()

			Expect(backend.Ping(ctx)).To(Succeed())

			now := time.Now().UTC()
			account := &auth.Account{
				ID: ulid.Make(), Name: "Suite User", Email: "suite@example.com",
				PasswordHash: "hash", IsActive: true, CreatedAt: now, UpdatedAt: now,
			}
			Expect(backend.Accounts.Create(ctx, account)).To(Succeed())
			Expect(backend.Accounts.Create(ctx, account)).To(MatchError(auth.ErrDuplicateKey))

			got, err := backend.Accounts.GetByEmail(ctx, "suite@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))
		})
	})
})
