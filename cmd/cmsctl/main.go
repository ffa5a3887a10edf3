package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"cmspages/app/internal/app/bootstrap"
	"cmspages/app/internal/platform/access"
	"cmspages/app/internal/platform/config"
	applog "cmspages/app/internal/platform/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return eris.New("missing command")
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		printUsage(stdout)
		return eris.Errorf("unknown command: %s", args[0])
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}
	// Command output goes to stdout; keep it free of log lines.
	logger.SetOutput(os.Stderr)

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	runID := uuid.NewString()
	entry := applog.Component(logger, "cmsctl").WithFields(logrus.Fields{
		"command": cmd.name,
		"run_id":  runID,
		"actor":   cfg.Actor,
	})

	if cfg.DBDriver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return eris.Wrap(err, "creating database directory")
		}
	}

	app, err := bootstrap.Build(ctx, bootstrap.Dependencies{
		Config:      *cfg,
		Logger:      logger,
		SentryHub:   sentryHub,
		Permissions: access.FullAccess{},
	})
	if err != nil {
		return eris.Wrap(err, "bootstrapping application")
	}
	defer func() {
		if cleanupErr := app.Cleanup(); cleanupErr != nil {
			logger.WithError(cleanupErr).Error("releasing resources")
		}
	}()

	ctx = access.WithActor(ctx, cfg.Actor)

	entry.Debug("running command")
	if err := cmd.run(ctx, commandEnv{app: app, stdout: stdout, logger: entry}, args[1:]); err != nil {
		entry.WithField("error", err.Error()).Error("command failed")
		applog.Capture(sentryHub, err, map[string]string{"command": cmd.name, "run_id": runID})
		return err
	}
	entry.Info("command finished")

	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: cmsctl <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", cmd.name, cmd.usage)
	}
}
