package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "cms.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CMS_ACTOR", "operator")
	return dir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	out, err := runCommand(t, "frobnicate")
	if err == nil {
		t.Fatalf("expected error for unknown command")
	}
	if !strings.Contains(out, "usage: cmsctl") {
		t.Fatalf("expected usage output, got %q", out)
	}
}

func TestRunLifecycleAndTransfer(t *testing.T) {
	dir := setupEnv(t)

	out, err := runCommand(t, "create-page", "docs/intro")
	if err != nil {
		t.Fatalf("create-page returned error: %v", err)
	}
	if !strings.Contains(out, "created page 1 (docs/intro)") {
		t.Fatalf("unexpected create-page output %q", out)
	}

	if _, err := runCommand(t, "add-version", "-status", "published", "-lang", "en", "-title", "Intro", "-content", "Hello", "1"); err != nil {
		t.Fatalf("add-version returned error: %v", err)
	}

	out, err = runCommand(t, "archive", "1")
	if err != nil {
		t.Fatalf("archive returned error: %v", err)
	}
	if !strings.Contains(out, "archived page 1") {
		t.Fatalf("unexpected archive output %q", out)
	}

	out, err = runCommand(t, "list")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(out, "docs/intro") || !strings.Contains(out, "archived") {
		t.Fatalf("expected archived page in listing, got %q", out)
	}

	exportPath := filepath.Join(dir, "out", "docs.json")
	out, err = runCommand(t, "export", "docs/", exportPath)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	if !strings.Contains(out, "exported 1 pages") {
		t.Fatalf("unexpected export output %q", out)
	}

	if _, err := runCommand(t, "purge", "docs/"); err == nil {
		t.Fatalf("expected purge without -yes to fail")
	}

	out, err = runCommand(t, "purge", "-yes", "docs/")
	if err != nil {
		t.Fatalf("purge returned error: %v", err)
	}
	if !strings.Contains(out, "purged 1 pages") {
		t.Fatalf("unexpected purge output %q", out)
	}

	out, err = runCommand(t, "import", exportPath)
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}
	if !strings.Contains(out, "1 created") {
		t.Fatalf("unexpected import output %q", out)
	}
}

func TestRunRejectsInvalidPageID(t *testing.T) {
	setupEnv(t)

	if _, err := runCommand(t, "archive", "abc"); err == nil {
		t.Fatalf("expected error for invalid page id")
	}
}
