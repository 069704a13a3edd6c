package main

import (
	"context"
	"database/sql"
	"fmt"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/adapters/memory"
	"github.com/dayemsiddiqui/cargo-queue/adapters/relica"
	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/config"
	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/logging"
)

// app bundles what every command needs: configuration, a logger and storage.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	repos  *cargoqueue.Repositories
	db     *sql.DB // nil for the memory driver
}

// newApp loads configuration and opens storage. The schema is applied when
// forceMigrate is set or DB_AUTO_MIGRATE is on.
func newApp(ctx context.Context, forceMigrate bool) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	if cfg.Database.Driver == config.DriverMemory {
		a.repos = memory.NewRepositories()
		logger.Warnf("Using in-memory storage; nothing survives a restart")
		return a, nil
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.Driver == "sqlite3" {
		// One writer at a time; sqlite reports SQLITE_BUSY otherwise.
		db.SetMaxOpenConns(1)
	}
	a.db = db
	logger.Infof("Database connection established: driver=%s", cfg.Database.Driver)

	if forceMigrate || cfg.Database.AutoMigrate {
		if err := cargoqueue.ApplyMigrationsWithPrefix(ctx, db, cfg.Database.Driver, cfg.Database.Prefix); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Infof("Migrations applied: prefix=%s", cfg.Database.Prefix)
	}

	a.repos = relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	return a, nil
}

// ping reports storage health. The memory driver is always healthy.
func (a *app) ping(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.PingContext(ctx)
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Errorf("Failed to close database: %v", err)
		}
	}
	_ = a.logger.Sync()
}

func (a *app) notifications() cargoqueue.NotificationService {
	if a.cfg.Queue.EnableNotifications {
		return cargoqueue.NewLoggingNotificationService(a.logger)
	}
	return &cargoqueue.NoOpNotificationService{}
}

func (a *app) newSweeper(m cargoqueue.Metrics) (*cargoqueue.ExpirySweeper, error) {
	return cargoqueue.NewExpirySweeper(
		cargoqueue.WithSweeperRepository(a.repos.Message),
		cargoqueue.WithSweeperLogger(a.logger),
		cargoqueue.WithSweeperBatchSize(a.cfg.Queue.SweepBatchSize),
		cargoqueue.WithSweeperMetrics(m),
		cargoqueue.WithSweeperNotifications(a.notifications()),
	)
}
