package cmd

import (
	"context"
	"fmt"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/config"
	"risk-register-backup/internal/database"
	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the collaborators shared by the commands that touch the store
type app struct {
	cfg      *config.AppConfig
	logger   *logging.Logger
	dbs      *database.Service
	db       *sqlx.DB
	store    *store.Store
	registry *prometheus.Registry
	metrics  *backup.Metrics
	manager  *backup.Manager
}

// openApp loads the configuration and connects to the store. withManager
// additionally wires the backup manager with its archive and notifier.
func openApp(ctx context.Context, withManager bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return openAppWithConfig(ctx, cfg, withManager)
}

func openAppWithConfig(ctx context.Context, cfg *config.AppConfig, withManager bool) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, dbs: database.NewServiceWithLogger(logger)}
	a.db, err = a.dbs.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database.Target(), err)
	}
	a.store = store.New(a.db)

	if !withManager {
		return a, nil
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = backup.NewMetrics(a.registry)

	archive, err := backup.NewStorageProviderFactory().CreateArchiveProvider(ctx, cfg.Backup.Archive)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to configure archive: %w", err)
	}

	opts := backup.ManagerOptions{
		Archive: archive,
		Metrics: a.metrics,
		Logger:  logger,
	}
	if cfg.Notifications.Enabled {
		opts.Notifier = backup.NewNotificationManager(logger, cfg.Notifications)
	}

	a.manager, err = backup.NewManager(a.store, cfg.Backup, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Ready pings the store
func (a *app) Ready(ctx context.Context) error {
	return a.dbs.TestConnection(ctx, a.db)
}

// Close releases the database connection
func (a *app) Close() {
	_ = a.dbs.Close(a.db)
}
