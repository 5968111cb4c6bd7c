package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"risk-register-backup/internal/api"
	"risk-register-backup/internal/backup"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveCmd runs the HTTP API and the automatic backup schedule
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backup API and run scheduled backups",
	Long: `Serve the backup endpoints over HTTP and, when backup.schedule.enabled is
set, run an automatic export every backup.schedule.interval.

Endpoints:
  POST /api/backups[?kind=manual|automatic]   download a fresh export
  GET  /api/backups[?status=&limit=]          list backup records
  POST /api/backups/restore[?dry_run=true]    restore an uploaded document
  GET  /healthz                               store connectivity
  GET  /metrics                               Prometheus metrics

Requests to /api/backups must carry an HS256 bearer token signed with
auth.secret whose role claim is one of auth.backup_roles.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateForServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openAppWithConfig(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := api.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	handler := api.NewServer(api.Options{
		Service:         a.manager,
		Auth:            auth,
		BackupRoles:     cfg.Auth.BackupRoles,
		PrivilegedRoles: cfg.Auth.PrivilegedRoles,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		Gatherer:        a.registry,
		Ready:           a.Ready,
		Logger:          a.logger,
	}).Handler()
	server := api.NewHTTPServer(cfg.Server.Address, handler, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("address", cfg.Server.Address).Info("Serving backup API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down backup API")
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Backup.Schedule.Enabled {
		scheduler := backup.NewScheduler(a.manager, cfg.Backup.Schedule.Interval, a.logger)
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	return g.Wait()
}
