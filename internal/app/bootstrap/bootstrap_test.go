package bootstrap

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cmspages/app/internal/platform/access"
	"cmspages/app/internal/platform/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		DBDriver:           config.DriverSQLite,
		DBPath:             filepath.Join(t.TempDir(), "cms.db"),
		LogLevel:           "info",
		LockTTL:            10 * time.Second,
		LockWait:           time.Second,
		VersionMaxAttempts: 3,
		Actor:              "system",
	}
}

func TestBuildWiresServiceAndTransfer(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	result, err := Build(context.Background(), Dependencies{
		Config:      testConfig(t),
		Logger:      logger,
		Permissions: access.FullAccess{},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if cleanupErr := result.Cleanup(); cleanupErr != nil {
			t.Errorf("cleanup failed: %v", cleanupErr)
		}
	})

	if result.PageService == nil || result.Exporter == nil || result.Importer == nil || result.Purger == nil {
		t.Fatalf("expected every component to be constructed, got %+v", result)
	}

	ctx := context.Background()
	page, err := result.PageService.CreatePage(ctx, "home")
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	exports, err := result.Exporter.Export(ctx, "")
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if len(exports) != 1 || exports[0].Slug != page.Slug {
		t.Fatalf("expected the created page to be exported, got %+v", exports)
	}
}

func TestBuildDefaultsToDenyAll(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	result, err := Build(context.Background(), Dependencies{Config: testConfig(t), Logger: logger})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = result.Cleanup()
	})

	ctx := context.Background()
	if _, err := result.PageService.CreatePage(ctx, "hidden"); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	pages, err := result.PageService.GetAllPages(ctx)
	if err != nil {
		t.Fatalf("GetAllPages returned error: %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("expected deny-all policy to hide pages, got %d", len(pages))
	}
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	if _, err := Build(context.Background(), Dependencies{Config: cfg}); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
