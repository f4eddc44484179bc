// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/auth/memory"
	"github.com/passgate/passgate/pkg/errutil"
)

type stack struct {
	svc      *auth.Service
	accounts *memory.AccountRepository
	resets   *memory.ResetTokenRepository
	clock    *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStack(t *testing.T) *stack {
	t.Helper()
	hasher, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})
	require.NoError(t, err)

	st := &stack{
		accounts: memory.NewAccountRepository(),
		resets:   memory.NewResetTokenRepository(),
		clock:    &clock{now: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)},
	}
	st.svc, err = auth.NewService(st.accounts, st.resets, hasher, auth.NewRandomTokenGenerator(),
		auth.WithClock(st.clock.Now))
	require.NoError(t, err)
	return st
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	id, err := st.svc.Register(ctx, "Alice", "Alice@Example.com", "secret123")
	require.NoError(t, err)

	res, err := st.svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, id, res.Account.ID)
	assert.Equal(t, auth.DefaultSessionMarker, res.SessionMarker)

	_, err = st.svc.Register(ctx, "Alice Again", "alice@example.com", "other123")
	errutil.AssertErrorCode(t, err, auth.CodeEmailTaken)

	stored, err := st.accounts.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotContains(t, stored.PasswordHash, "secret123")
}

func TestService_ConcurrentRegisterSameEmail(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.svc.Register(ctx, "Alice", "alice@example.com", "secret123"); err == nil {
				wins.Add(1)
			} else {
				assert.Equal(t, auth.KindConflict, auth.KindOf(err))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestService_ResetFlow(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	_, err := st.svc.Register(ctx, "Alice", "alice@example.com", "oldpass1")
	require.NoError(t, err)

	first, err := st.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	second, err := st.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	err = st.svc.ResetPassword(ctx, "alice@example.com", first.Token, "newpass1")
	errutil.AssertErrorCode(t, err, auth.CodeResetTokenUsed)

	err = st.svc.ResetPassword(ctx, "bob@example.com", second.Token, "newpass1")
	errutil.AssertErrorCode(t, err, auth.CodeResetTokenInvalid)

	require.NoError(t, st.svc.ResetPassword(ctx, "alice@example.com", second.Token, "newpass1"))

	err = st.svc.ResetPassword(ctx, "alice@example.com", second.Token, "newpass2")
	errutil.AssertErrorCode(t, err, auth.CodeResetTokenUsed)

	_, err = st.svc.Login(ctx, "alice@example.com", "oldpass1")
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	_, err = st.svc.Login(ctx, "alice@example.com", "newpass1")
	require.NoError(t, err)
}

func TestService_ResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	_, err := st.svc.Register(ctx, "Alice", "alice@example.com", "oldpass1")
	require.NoError(t, err)
	req, err := st.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	st.clock.Advance(auth.ResetTokenTTL + time.Second)

	err = st.svc.ResetPassword(ctx, "alice@example.com", req.Token, "newpass1")
	errutil.AssertErrorCode(t, err, auth.CodeResetTokenExpired)

	_, err = st.svc.Login(ctx, "alice@example.com", "oldpass1")
	require.NoError(t, err, "expired token must not change the password")
}

func TestService_ConcurrentResetRequests(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	_, err := st.svc.Register(ctx, "Alice", "alice@example.com", "oldpass1")
	require.NoError(t, err)

	tokens := make(chan string, 4)
	var wg sync.WaitGroup
	for range cap(tokens) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A request that keeps losing the race gives up; it never leaves a second live token.
			req, err := st.svc.RequestPasswordReset(ctx, "alice@example.com")
			if err != nil {
				assert.Equal(t, "RESET_REQUEST_FAILED", errutil.Code(err))
				return
			}
			tokens <- req.Token
		}()
	}
	wg.Wait()
	close(tokens)

	usable := 0
	for token := range tokens {
		rec, err := st.resets.Find(ctx, "alice@example.com", auth.HashResetToken(token))
		require.NoError(t, err)
		if !rec.Used {
			usable++
		}
	}
	assert.Equal(t, 1, usable, "only the latest token stays valid")
}

func TestService_ConcurrentResetSameToken(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	_, err := st.svc.Register(ctx, "Alice", "alice@example.com", "oldpass1")
	require.NoError(t, err)
	req, err := st.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.svc.ResetPassword(ctx, "alice@example.com", req.Token, "newpass1"); err == nil {
				wins.Add(1)
			} else {
				assert.Equal(t, auth.CodeResetTokenUsed, errutil.Code(err))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
