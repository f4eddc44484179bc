// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package config loads passgate configuration from defaults, an optional
// YAML file, environment variables and command-line flags, in that order.
package config

import (
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/logging"
	"github.com/passgate/passgate/internal/store"
	"github.com/passgate/passgate/internal/xdg"
)

// Defaults.
const (
	DefaultListenAddr  = ":8000"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultSQLiteFile  = "passgate.db"
)

// Config is the full passgate configuration.
type Config struct {
	ListenAddr  string          `koanf:"listen_addr"`
	MetricsAddr string          `koanf:"metrics_addr"`
	Log         LogConfig       `koanf:"log"`
	Store       StoreConfig     `koanf:"store"`
	Identity    IdentityConfig  `koanf:"identity"`
	Provision   ProvisionConfig `koanf:"provision"`
	Session     SessionConfig   `koanf:"session"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StoreConfig selects and configures the account store.
type StoreConfig struct {
	Driver      string `koanf:"driver"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// IdentityConfig configures federated login. An empty TokenInfoURL disables it.
type IdentityConfig struct {
	TokenInfoURL string        `koanf:"tokeninfo_url"`
	Audience     string        `koanf:"audience"`
	Timeout      time.Duration `koanf:"timeout"`
}

// ProvisionConfig restricts which federated emails may get a new account.
type ProvisionConfig struct {
	AllowedDomains []string `koanf:"allowed_domains"`
}

// SessionConfig configures the session marker returned on login.
type SessionConfig struct {
	Marker string `koanf:"marker"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		Log:         LogConfig{Format: "json", Level: "info"},
		Store:       StoreConfig{Driver: store.DriverMemory, SQLitePath: xdg.DataFile(DefaultSQLiteFile)},
		Identity:    IdentityConfig{Timeout: auth.DefaultOracleTimeout},
		Session:     SessionConfig{Marker: auth.DefaultSessionMarker},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"listen-addr":       "listen_addr",
	"metrics-addr":      "metrics_addr",
	"log-format":        "log.format",
	"log-level":         "log.level",
	"store-driver":      "store.driver",
	"database-url":      "store.database_url",
	"sqlite-path":       "store.sqlite_path",
	"auto-migrate":      "store.auto_migrate",
	"identity-url":      "identity.tokeninfo_url",
	"identity-audience": "identity.audience",
	"identity-timeout":  "identity.timeout",
	"allowed-domains":   "provision.allowed_domains",
	"session-marker":    "session.marker",
}

// BindFlags registers the configuration flags on fs with their defaults.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("listen-addr", d.ListenAddr, "HTTP API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("store-driver", d.Store.Driver, "account store (memory, sqlite or postgres)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("sqlite-path", d.Store.SQLitePath, "SQLite database file")
	fs.Bool("auto-migrate", false, "apply pending PostgreSQL migrations on start")
	fs.String("identity-url", "", "identity provider tokeninfo URL (empty = federated login disabled)")
	fs.String("identity-audience", "", "required audience of federated credentials")
	fs.Duration("identity-timeout", d.Identity.Timeout, "identity provider request timeout")
	fs.StringSlice("allowed-domains", nil, "email domain globs allowed to self-provision (empty = all)")
	fs.String("session-marker", d.Session.Marker, "session marker returned on login")
}

// Loader reads configuration. The zero value reads the process environment.
type Loader struct {
	// Path is an optional YAML file.
	Path string
	// Flags are applied last; only flags named in flagKeys are read.
	Flags *pflag.FlagSet
	// Environ overrides os.Environ.
	Environ func() []string
}

// Load reads, merges and validates the configuration.
func (l Loader) Load() (*Config, error) {
	k := koanf.New(".")

	if l.Path != "" {
		if _, err := os.Stat(l.Path); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", l.Path).Wrap(err)
		}
		if err := k.Load(file.Provider(l.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", l.Path).With("operation", "parse file").Wrap(err)
		}
	}

	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	if err := k.Load(env.Provider(".", env.Opt{EnvironFunc: environ, TransformFunc: envKey}), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "read environment").Wrap(err)
	}

	if l.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(l.Flags, ".", k, flagValue(l.Flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("operation", "read flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps the supported environment variables to configuration keys.
func envKey(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	switch name {
	case "DATABASE_URL":
		return "store.database_url", value
	case "PORT":
		return "listen_addr", ":" + value
	case "PASSGATE_STORE_DRIVER":
		return "store.driver", value
	case "PASSGATE_LOG_LEVEL":
		return "log.level", value
	case "PASSGATE_IDENTITY_URL":
		return "identity.tokeninfo_url", value
	case "PASSGATE_ALLOWED_DOMAINS":
		return "provision.allowed_domains", splitList(value)
	default:
		return "", nil
	}
}

func flagValue(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	if err := validAddr("listen_addr", c.ListenAddr, false); err != nil {
		return err
	}
	if err := validAddr("metrics_addr", c.MetricsAddr, true); err != nil {
		return err
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.ListenAddr {
		return oops.Code("CONFIG_INVALID").With("metrics_addr", c.MetricsAddr).
			Errorf("metrics_addr must differ from listen_addr")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite:
		if c.Store.SQLitePath == "" {
			return oops.Code("CONFIG_INVALID").Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case store.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("store.database_url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("store.driver", c.Store.Driver).
			Errorf("store.driver must be one of memory, sqlite, postgres")
	}

	if c.Identity.Timeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("identity.timeout", c.Identity.Timeout.String()).
			Errorf("identity.timeout must be positive")
	}
	if c.Session.Marker == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.marker is required")
	}
	return nil
}

// FederationEnabled reports whether an identity oracle is configured.
func (c *Config) FederationEnabled() bool {
	return c.Identity.TokenInfoURL != ""
}

func validAddr(key, addr string, optional bool) error {
	if addr == "" {
		if optional {
			return nil
		}
		return oops.Code("CONFIG_INVALID").Errorf("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return oops.Code("CONFIG_INVALID").With(key, addr).Wrap(err)
	}
	return nil
}
