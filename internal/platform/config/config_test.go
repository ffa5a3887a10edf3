package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DB_DRIVER", "DB_PATH", "DB_DSN", "LOG_LEVEL", "SENTRY_DSN", "ENV",
		"REDIS_URL", "LOCK_TTL", "LOCK_WAIT", "VERSION_MAX_ATTEMPTS", "CMS_ACTOR",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("expected default driver %q, got %q", DriverSQLite, cfg.DBDriver)
	}

	if cfg.DBPath != "./data/cms.db" {
		t.Errorf("expected default DB path, got %q", cfg.DBPath)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}

	if cfg.Environment != "development" {
		t.Errorf("expected default environment development, got %q", cfg.Environment)
	}

	if cfg.LockTTL != 10*time.Second {
		t.Errorf("expected lock TTL 10s, got %s", cfg.LockTTL)
	}

	if cfg.LockWait != 5*time.Second {
		t.Errorf("expected lock wait 5s, got %s", cfg.LockWait)
	}

	if cfg.VersionMaxAttempts != 3 {
		t.Errorf("expected 3 version attempts, got %d", cfg.VersionMaxAttempts)
	}

	if cfg.Actor != "system" {
		t.Errorf("expected default actor system, got %q", cfg.Actor)
	}

	if cfg.UseRedisLock() {
		t.Errorf("expected redis lock to be disabled without REDIS_URL")
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "host=localhost user=cms dbname=cms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOCK_TTL", "30s")
	t.Setenv("VERSION_MAX_ATTEMPTS", "5")
	t.Setenv("CMS_ACTOR", " importer ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBDriver != DriverPostgres {
		t.Errorf("expected driver to be normalised to postgres, got %q", cfg.DBDriver)
	}

	if cfg.LockTTL != 30*time.Second {
		t.Errorf("expected lock TTL 30s, got %s", cfg.LockTTL)
	}

	if cfg.VersionMaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.VersionMaxAttempts)
	}

	if cfg.Actor != "importer" {
		t.Errorf("expected trimmed actor importer, got %q", cfg.Actor)
	}

	if !cfg.UseRedisLock() {
		t.Errorf("expected redis lock to be enabled")
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for postgres without DSN")
	}

	if !strings.Contains(err.Error(), "DB_DSN is required") {
		t.Fatalf("expected error to mention DB_DSN, got %v", err)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoadRejectsInvalidAttempts(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERSION_MAX_ATTEMPTS", "0")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for zero attempts")
	}

	if !strings.Contains(err.Error(), "VERSION_MAX_ATTEMPTS") {
		t.Fatalf("expected error to mention VERSION_MAX_ATTEMPTS, got %v", err)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCK_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed LOCK_TTL")
	}
}
