// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/httpapi"
	"github.com/passgate/passgate/internal/observability"
	"github.com/passgate/passgate/internal/store"
	"github.com/passgate/passgate/pkg/errutil"
)

// announcingServer reports its bound address once started.
type announcingServer struct {
	Server
	started chan<- string
}

func (s announcingServer) Start() (<-chan error, error) {
	errCh, err := s.Server.Start()
	if err == nil {
		s.started <- s.Server.Addr()
	}
	return errCh, err
}

type announcingObsServer struct {
	*observability.Server
	started chan<- string
}

func (s announcingObsServer) Start() (<-chan error, error) {
	errCh, err := s.Server.Start()
	if err == nil {
		s.started <- s.Server.Addr()
	}
	return errCh, err
}

func runServe(ctx context.Context, t *testing.T, deps *ServeDeps, args ...string) <-chan error {
	t.Helper()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	serve := findCommand(t, root, "serve")
	serve.RunE = func(cmd *cobra.Command, _ []string) error {
		return runServeWithDeps(cmd.Context(), cmd, deps)
	}
	root.SetArgs(append([]string{"serve", "--log-level", "error"}, args...))

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()
	return done
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode
}

func TestServe_EndToEnd(t *testing.T) {
	clearEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan string, 2)
	obsStarted := make(chan string, 1)
	deps := &ServeDeps{
		APIServerFactory: func(addr string, handler http.Handler, logger *slog.Logger) Server {
			return announcingServer{Server: httpapi.NewServer(addr, handler, logger), started: started}
		},
		ObservabilityServerFactory: func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return announcingObsServer{Server: observability.NewServer(addr, checker, logger), started: obsStarted}
		},
	}
	done := runServe(ctx, t, deps, "--listen-addr", "127.0.0.1:0", "--metrics-addr", "localhost:0")

	var apiAddr, obsAddr string
	select {
	case apiAddr = <-started:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("api server did not start")
	}
	obsAddr = <-obsStarted

	base := "http://" + apiAddr
	assert.Equal(t, http.StatusCreated, post(t, base+"/auth/register", `{"name":"Ada Lovelace","email":"ada@example.com","password":"engine-42"}`))
	assert.Equal(t, http.StatusOK, post(t, base+"/auth/login", `{"email":"ada@example.com","password":"engine-42"}`))

	resp, err := http.Get("http://" + obsAddr + "/healthz/readiness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + obsAddr + "/metrics")
	require.NoError(t, err)
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(metrics), `passgate_requests_total{operation="register",status="201"} 1`)
	assert.Contains(t, string(metrics), `passgate_auth_events_total{event="login",outcome="success"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	clearEnv(t)
	done := runServe(context.Background(), t, nil, "--log-format", "xml")
	err := <-done
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestServe_StoreOpenFailure(t *testing.T) {
	clearEnv(t)
	deps := &ServeDeps{
		StoreOpener: func(context.Context, store.Options) (*store.Backend, error) {
			return nil, errors.New("disk on fire")
		},
	}
	done := runServe(context.Background(), t, deps, "--listen-addr", "127.0.0.1:0", "--metrics-addr", "")
	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestServe_ListenFailureStopsObservability(t *testing.T) {
	clearEnv(t)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = taken.Close() }()

	done := runServe(context.Background(), t, nil, "--listen-addr", taken.Addr().String(), "--metrics-addr", "localhost:0")
	err = <-done
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "LISTEN_FAILED")
}
