package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration values for the CMS page store.
type Config struct {
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/cms.db"`
	DBDSN       string `env:"DB_DSN"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"ENV" envDefault:"development"`

	// RedisURL enables the cross-process version lock when set.
	RedisURL string        `env:"REDIS_URL"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"10s"`
	LockWait time.Duration `env:"LOCK_WAIT" envDefault:"5s"`

	VersionMaxAttempts int `env:"VERSION_MAX_ATTEMPTS" envDefault:"3"`

	// Actor is the identity stamped on versions created by the operator CLI.
	Actor string `env:"CMS_ACTOR" envDefault:"system"`
}

// UseRedisLock reports whether version numbering should be serialised through Redis.
func (c Config) UseRedisLock() bool {
	return c.RedisURL != ""
}

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, eris.Wrap(err, "parsing environment")
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.Actor = strings.TrimSpace(cfg.Actor)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return eris.New("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return eris.New("DB_DSN is required for the postgres driver")
		}
	default:
		return eris.Errorf("unsupported DB_DRIVER value: %s", c.DBDriver)
	}

	if c.VersionMaxAttempts < 1 {
		return eris.Errorf("VERSION_MAX_ATTEMPTS must be at least 1, got %d", c.VersionMaxAttempts)
	}

	if c.LockTTL <= 0 {
		return eris.New("LOCK_TTL must be positive")
	}

	if c.Actor == "" {
		return eris.New("CMS_ACTOR must not be empty")
	}

	return nil
}
