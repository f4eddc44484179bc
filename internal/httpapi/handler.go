// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package httpapi exposes the auth service as a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

// MaxBodyBytes limits request bodies.
const MaxBodyBytes = 64 << 10

const tracerName = "github.com/passgate/passgate/internal/httpapi"

// AuthService is the part of auth.Service the API calls.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (ulid.ULID, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	FederatedLogin(ctx context.Context, credential string) (*auth.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) (*auth.ResetRequest, error)
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

// RequestRecorder counts API requests by operation and status.
type RequestRecorder interface {
	RecordRequest(operation string, status int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, int) {}

// Handler serves the API routes.
type Handler struct {
	svc     AuthService
	metrics RequestRecorder
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Handler.
type Option func(*Handler)

// WithRequestRecorder sets the request counter.
func WithRequestRecorder(r RequestRecorder) Option {
	return func(h *Handler) { h.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler creates a Handler for svc.
func NewHandler(svc AuthService, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	h := &Handler{
		svc:     svc,
		metrics: nopRecorder{},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = nopRecorder{}
	}
	if h.logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return h, nil
}

// Routes returns the API mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.operation("banner", h.banner))
	mux.HandleFunc("POST /auth/register", h.operation("register", h.register))
	mux.HandleFunc("POST /auth/login", h.operation("login", h.login))
	mux.HandleFunc("POST /auth/federated", h.operation("federated_login", h.federatedLogin))
	mux.HandleFunc("POST /auth/forgot-password", h.operation("request_password_reset", h.forgotPassword))
	mux.HandleFunc("POST /auth/reset-password", h.operation("reset_password", h.resetPassword))
	return mux
}

// handlerFunc returns the status and body to write, or an error.
type handlerFunc func(r *http.Request) (int, any, error)

// operation wraps fn with a span, error mapping and request metrics.
func (h *Handler) operation(name string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "httpapi."+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("passgate.operation", name)))
		defer span.End()

		status, body, err := fn(r.WithContext(ctx))
		if err != nil {
			status, body = h.failure(ctx, name, err)
			span.RecordError(err)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, errutil.Code(err))
			}
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))

		writeJSON(w, status, body)
		h.metrics.RecordRequest(name, status)
	}
}

func (h *Handler) banner(_ *http.Request) (int, any, error) {
	return http.StatusOK, messageResponse{Message: "passgate auth service"}, nil
}

func (h *Handler) register(r *http.Request) (int, any, error) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	id, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, registerResponse{OK: true, Message: "registration successful", UserID: id.String()}, nil
}

func (h *Handler) login(r *http.Request) (int, any, error) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, newLoginResponse(res), nil
}

func (h *Handler) federatedLogin(r *http.Request) (int, any, error) {
	var req federatedRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	res, err := h.svc.FederatedLogin(r.Context(), req.Credential)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, newLoginResponse(res), nil
}

func (h *Handler) forgotPassword(r *http.Request) (int, any, error) {
	var req forgotPasswordRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	res, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		return 0, nil, err
	}

	out := forgotPasswordResponse{OK: true, Message: "if the email is registered, a reset token has been issued"}
	if res.Token != "" {
		out.Token = res.Token
		out.TTLSeconds = int64(res.TTL / time.Second)
	}
	return http.StatusOK, out, nil
}

func (h *Handler) resetPassword(r *http.Request) (int, any, error) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, okResponse{OK: true, Message: "password has been reset"}, nil
}

// decode reads a single JSON object into dst, rejecting unknown fields and trailing data.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return oops.Code(codeBodyTooLarge).With("limit", tooLarge.Limit).Errorf("request body too large")
		}
		return oops.Code(codeMalformedBody).Errorf("malformed request body: %s", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return oops.Code(codeMalformedBody).Errorf("malformed request body: unexpected data after JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(body)
}
