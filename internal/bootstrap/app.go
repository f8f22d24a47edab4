// Package bootstrap wires the bazaar services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	appbazaar "github.com/bazaar/backend/internal/application/bazaar"
	"github.com/bazaar/backend/internal/application/checkout"
	"github.com/bazaar/backend/internal/application/numbering"
	"github.com/bazaar/backend/internal/infrastructure/config"
	"github.com/bazaar/backend/internal/infrastructure/lock"
	"github.com/bazaar/backend/internal/infrastructure/persistence"
	"github.com/bazaar/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// App holds the wired services and the resources behind them
type App struct {
	Database *persistence.Database
	Bazaar   *appbazaar.Service
	Checkout *checkout.Service

	logger     *zap.Logger
	closeLocks func() error
}

// New opens the database and lock backend described by cfg and builds the
// services on top. SQLite databases get their tables through AutoMigrate;
// PostgreSQL is expected to be migrated with cmd/migrate.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	metrics, err := telemetry.NewLockMetrics(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	locks, closeLocks, err := lock.NewFromConfig(ctx, cfg, metrics, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	storeOpts := []persistence.StoreOption{persistence.WithBatchSize(cfg.Store.BatchSize)}
	repos := persistence.NewRepositories(db.DB, storeOpts...)
	scope := persistence.NewGormTransactionScope(db.DB, storeOpts...)

	return &App{
		Database: db,
		Bazaar: appbazaar.NewService(repos, scope, locks, log,
			numbering.WithLockTimeout(cfg.Numbering.LockTimeout)),
		Checkout:   checkout.NewService(repos, scope, checkout.PolicyFrom(cfg.Checkout), log),
		logger:     log,
		closeLocks: closeLocks,
	}, nil
}

// Close releases the lock backend and the database
func (a *App) Close() error {
	err := errors.Join(a.closeLocks(), a.Database.Close())
	if err != nil {
		a.logger.Error("Error closing application resources", zap.Error(err))
	}
	return err
}
