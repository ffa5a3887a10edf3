package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cmspages/app/internal/data/database"
	"cmspages/app/internal/data/migrations"
	datapages "cmspages/app/internal/data/pages"
	domainpages "cmspages/app/internal/domain/pages"
	"cmspages/app/internal/platform/access"
	"cmspages/app/internal/platform/config"
	"cmspages/app/internal/platform/lock"
	"cmspages/app/internal/transfer"
)

type Dependencies struct {
	Config      config.Config
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	Permissions domainpages.PermissionChecker
	Identity    domainpages.Identity
}

type Result struct {
	PageService domainpages.Service
	Store       *datapages.Store
	Languages   *datapages.LanguageRegistry
	Exporter    *transfer.Exporter
	Importer    *transfer.Importer
	Purger      *transfer.Purger
	Database    *gorm.DB
	Cleanup     func() error
}

// Build composes the CMS page layers and returns the constructed components.
// Permissions default to a deny-all policy and the identity to the configured actor.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config

	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DBDSN,
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	var redisClient *redis.Client
	closeAll := func() error {
		var firstErr error
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				firstErr = eris.Wrap(err, "closing redis client")
			}
		}
		if err := database.Close(db); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := closeAll(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing resources after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := migrations.MigratePages(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running cms page migrations"))
	}

	store, err := datapages.NewStore(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page store"))
	}

	languages, err := datapages.NewLanguageRegistry(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating language registry"))
	}

	var locker domainpages.Locker = lock.NewKeyedMutex()
	if cfg.UseRedisLock() {
		redisClient, err = lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return closeOnError(eris.Wrap(err, "connecting to redis"))
		}

		locker, err = lock.NewRedisLocker(lock.RedisOptions{
			Client: redisClient,
			TTL:    cfg.LockTTL,
			Wait:   cfg.LockWait,
			Prefix: "cmspages:lock:",
			Logger: deps.Logger,
		})
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating redis locker"))
		}
	}

	numbering, err := domainpages.NewNumberingAuthority(domainpages.NumberingOptions{
		Ledger:      store,
		Locker:      locker,
		MaxAttempts: cfg.VersionMaxAttempts,
		Logger:      deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating numbering authority"))
	}

	permissions := deps.Permissions
	if permissions == nil {
		permissions = access.NewPolicy()
	}

	resolver, err := domainpages.NewResolver(permissions)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating visibility resolver"))
	}

	identity := deps.Identity
	if identity == nil {
		identity = access.ContextIdentity{Fallback: cfg.Actor}
	}

	pageService, err := domainpages.NewService(domainpages.ServiceOptions{
		Store:     store,
		Languages: languages,
		Numbering: numbering,
		Resolver:  resolver,
		Identity:  identity,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page service"))
	}

	exporter, err := transfer.NewExporter(store, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating exporter"))
	}

	importer, err := transfer.NewImporter(transfer.ImporterOptions{
		Store:         store,
		Languages:     languages,
		Logger:        deps.Logger,
		DefaultAuthor: cfg.Actor,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating importer"))
	}

	purger, err := transfer.NewPurger(store, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating purger"))
	}

	return Result{
		PageService: pageService,
		Store:       store,
		Languages:   languages,
		Exporter:    exporter,
		Importer:    importer,
		Purger:      purger,
		Database:    db,
		Cleanup:     closeAll,
	}, nil
}
