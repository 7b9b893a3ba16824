// Package config loads guiche configuration from YAML or TOML files with
// GUICHE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/guiche/pkg/domain"
)

// EnvPrefix prefixes every environment override, e.g. GUICHE_REDIS_ADDR.
const EnvPrefix = "GUICHE"

// Backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log" toml:"log"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth" toml:"auth"`
	Session SessionConfig `mapstructure:"session" yaml:"session" toml:"session"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store" toml:"store"`
	Ledger  LedgerConfig  `mapstructure:"ledger" yaml:"ledger" toml:"ledger"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis" toml:"redis"`
	Forex   ForexConfig   `mapstructure:"forex" yaml:"forex" toml:"forex"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http" toml:"http"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" toml:"metrics"`
	Seed    SeedConfig    `mapstructure:"seed" yaml:"seed" toml:"seed"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" toml:"level"`
	Format string `mapstructure:"format" yaml:"format" toml:"format"` // text or json
	Redact bool   `mapstructure:"redact" yaml:"redact" toml:"redact"`
}

type AuthConfig struct {
	MaxAttempts  int `mapstructure:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`
	MaxInputSize int `mapstructure:"max_input_size" yaml:"max_input_size" toml:"max_input_size"`
}

// SessionConfig selects where dialogue state lives.
type SessionConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend" toml:"backend"` // memory, file or redis
	Path    string        `mapstructure:"path" yaml:"path" toml:"path"`          // file backend directory
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl" toml:"ttl"`             // redis backend only

	// EncryptionKey seals stored sessions (hex or base64, 32 bytes). Empty disables it.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key" toml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys" toml:"fallback_keys"`
}

// StoreConfig selects the identity store and score-band table.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" toml:"backend"` // memory or sqlite
	DSN     string `mapstructure:"dsn" yaml:"dsn" toml:"dsn"`
}

// LedgerConfig selects the decision ledger. An empty backend follows the store.
type LedgerConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" toml:"backend"` // memory, sqlite, file or redis
	Path    string `mapstructure:"path" yaml:"path" toml:"path"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" toml:"addr"`
	Password string        `mapstructure:"password" yaml:"password" toml:"password"`
	DB       int           `mapstructure:"db" yaml:"db" toml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix" toml:"prefix"`
	Locking  bool          `mapstructure:"locking" yaml:"locking" toml:"locking"` // distributed session and client locks
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl" toml:"lock_ttl"`
}

type ForexConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url" toml:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" toml:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" toml:"addr"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
}

// SeedConfig loads clients and score bands at startup.
type SeedConfig struct {
	ClientsCSV string             `mapstructure:"clients_csv" yaml:"clients_csv" toml:"clients_csv"`
	BandsCSV   string             `mapstructure:"bands_csv" yaml:"bands_csv" toml:"bands_csv"`
	Clients    []domain.Client    `mapstructure:"clients" yaml:"clients" toml:"clients"`
	Bands      []domain.ScoreBand `mapstructure:"bands" yaml:"bands" toml:"bands"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "text", Redact: true},
		Auth: AuthConfig{MaxAttempts: domain.DefaultMaxAttempts, MaxInputSize: 4096},
		Session: SessionConfig{
			Backend: BackendMemory,
			Path:    ".guiche/sessions",
			TTL:     24 * time.Hour,
		},
		Store:  StoreConfig{Backend: BackendMemory, DSN: "guiche.db"},
		Ledger: LedgerConfig{Path: ".guiche/ledger.jsonl"},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Prefix:  "guiche:",
			LockTTL: 30 * time.Second,
		},
		Forex: ForexConfig{
			Enabled:  true,
			BaseURL:  "https://api.frankfurter.app",
			Timeout:  5 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

var (
	ErrInvalidBackend = errors.New("invalid backend")
	ErrInvalidValue   = errors.New("invalid value")
)

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("%w: auth.max_attempts must be positive", ErrInvalidValue))
	}
	if c.Auth.MaxInputSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: auth.max_input_size must be positive", ErrInvalidValue))
	}
	switch c.Session.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: session.backend %q", ErrInvalidBackend, c.Session.Backend))
	}
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: store.backend %q", ErrInvalidBackend, c.Store.Backend))
	}
	switch c.Ledger.Backend {
	case "", BackendMemory, BackendSQLite, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: ledger.backend %q", ErrInvalidBackend, c.Ledger.Backend))
	}
	if c.Ledger.Backend == BackendSQLite && c.Store.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("%w: ledger.backend sqlite requires store.backend sqlite", ErrInvalidBackend))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q", ErrInvalidValue, c.Log.Format))
	}
	return errors.Join(errs...)
}

// LedgerBackend resolves an empty ledger backend to the store backend.
func (c *Config) LedgerBackend() string {
	if c.Ledger.Backend != "" {
		return c.Ledger.Backend
	}
	return c.Store.Backend
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Session.Backend == BackendRedis || c.LedgerBackend() == BackendRedis || c.Redis.Locking
}
