// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/pkg/errutil"
)

// DefaultOracleTimeout bounds a single IdentityOracle call.
const DefaultOracleTimeout = 10 * time.Second

// defaultDummyHash is verified for unknown emails when the hasher cannot
// supply its own dummy hash.
// Format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
const defaultDummyHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// dummyHasher is implemented by hashers that can produce a never-matching
// hash at their own cost parameters.
type dummyHasher interface {
	DummyHash() string
}

// EventRecorder receives the outcome of each service operation.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// LoginResult is returned by Login and FederatedLogin.
type LoginResult struct {
	Account       *Account
	SessionMarker string
}

// Service orchestrates registration, login, federated login and password resets.
type Service struct {
	accounts      AccountRepository
	resets        ResetTokenRepository
	hasher        PasswordHasher
	dummyHash     string
	tokens        TokenGenerator
	oracle        IdentityOracle
	oracleTimeout time.Duration
	sessions      SessionIssuer
	provision     ProvisionPolicy
	recorder      EventRecorder
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithOracle enables federated login through oracle.
func WithOracle(oracle IdentityOracle) Option {
	return func(s *Service) { s.oracle = oracle }
}

// WithOracleTimeout overrides DefaultOracleTimeout.
func WithOracleTimeout(d time.Duration) Option {
	return func(s *Service) { s.oracleTimeout = d }
}

// WithSessionIssuer replaces the static session marker.
func WithSessionIssuer(issuer SessionIssuer) Option {
	return func(s *Service) { s.sessions = issuer }
}

// WithProvisionPolicy restricts which federated emails get new accounts.
func WithProvisionPolicy(policy ProvisionPolicy) Option {
	return func(s *Service) { s.provision = policy }
}

// WithEventRecorder reports operation outcomes, typically to metrics.
func WithEventRecorder(recorder EventRecorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

// WithLogger sets the service logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the time source used for token issuance and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. The repositories, hasher and token generator are required.
func NewService(
	accounts AccountRepository,
	resets ResetTokenRepository,
	hasher PasswordHasher,
	tokens TokenGenerator,
	opts ...Option,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if resets == nil {
		return nil, oops.Errorf("reset token repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token generator is required")
	}

	s := &Service{
		accounts:      accounts,
		resets:        resets,
		hasher:        hasher,
		tokens:        tokens,
		oracleTimeout: DefaultOracleTimeout,
		sessions:      StaticSessionIssuer{},
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if s.now == nil {
		return nil, oops.Errorf("clock is required")
	}
	if s.sessions == nil {
		return nil, oops.Errorf("session issuer is required")
	}
	if s.oracleTimeout <= 0 {
		return nil, oops.Errorf("oracle timeout must be positive")
	}

	// The unknown-email path must cost what a wrong password costs.
	s.dummyHash = defaultDummyHash
	if dh, ok := hasher.(dummyHasher); ok {
		s.dummyHash = dh.DummyHash()
	}
	return s, nil
}

// Register creates an active account and returns its id.
func (s *Service) Register(ctx context.Context, name, email, password string) (id ulid.ULID, err error) {
	defer s.record("register", &err)

	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := ValidateName(name); err != nil {
		return ulid.ULID{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return ulid.ULID{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return ulid.ULID{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	account := s.newAccount(name, email, hash, false)
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return ulid.ULID{}, oops.Code(CodeEmailTaken).Errorf("email is already registered")
		}
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create account").Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	return account.ID, nil
}

// Login verifies a password and returns the account with a session marker.
// An unknown email and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer s.record("login", &err)

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	targetHash := s.dummyHash
	switch {
	case err == nil:
		targetHash = account.PasswordHash
	case errors.Is(err, ErrNotFound):
		account = nil
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get account").Wrap(err)
	}

	// Always verify so both failure paths take one hash computation.
	if ok := s.hasher.Verify(password, targetHash); !ok || account == nil {
		return nil, errInvalidCredentials()
	}

	if !account.IsActive {
		return nil, errAccountDisabled(account)
	}

	s.upgradeHash(ctx, account, password)
	return s.issueSession(ctx, account)
}

// SetAccountActive enables or disables login for the account with email.
func (s *Service) SetAccountActive(ctx context.Context, email string, active bool) error {
	email = NormalizeEmail(email)
	if err := s.accounts.SetActive(ctx, email, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeAccountNotFound).Errorf("account not found")
		}
		return oops.Code("ACCOUNT_SET_ACTIVE_FAILED").With("active", active).Wrap(err)
	}
	s.logger.InfoContext(ctx, "account active flag changed", "email", email, "active", active)
	return nil
}

// upgradeHash rehashes a verified password whose stored hash is outdated.
// Failure is logged and never fails the login.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogWarn(s.logger, "password rehash failed", err)
		return
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		errutil.LogWarn(s.logger, "password rehash not stored", err)
		return
	}
	account.PasswordHash = hash
	s.logger.InfoContext(ctx, "password hash upgraded", "account_id", account.ID.String())
}

func (s *Service) issueSession(ctx context.Context, account *Account) (*LoginResult, error) {
	marker, err := s.sessions.Issue(ctx, account)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_ISSUE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return &LoginResult{Account: account, SessionMarker: marker}, nil
}

func (s *Service) newAccount(name, email, hash string, federated bool) *Account {
	now := s.now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Federated:    federated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// record reports the outcome of an operation to the EventRecorder.
func (s *Service) record(event string, errp *error) {
	if s.recorder == nil {
		return
	}
	outcome := "success"
	if *errp != nil {
		outcome = string(KindOf(*errp))
	}
	s.recorder.RecordAuthEvent(event, outcome)
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func errAccountDisabled(account *Account) error {
	return oops.Code(CodeAccountDisabled).
		With("account_id", account.ID.String()).
		Errorf("account is disabled")
}
