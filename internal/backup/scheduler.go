package backup

import (
	"context"
	"errors"
	"time"

	"risk-register-backup/internal/logging"
)

// Exporter is the part of BackupManager the scheduler drives
type Exporter interface {
	Export(ctx context.Context, req ExportRequest) (*Artifact, error)
}

// Scheduler runs an automatic export on a fixed interval. Scheduled exports carry no actor.
type Scheduler struct {
	exporter Exporter
	interval time.Duration
	logger   *logging.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(exporter Exporter, interval time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Scheduler{exporter: exporter, interval: interval, logger: logger}
}

// Run exports once per interval until ctx is done. A failed export is
// logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return NewConfigurationError("schedule interval must be positive", nil)
	}

	s.logger.WithField("interval", s.interval.String()).Info("Scheduling automatic backups")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Backup scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	artifact, err := s.exporter.Export(ctx, ExportRequest{Kind: KindAutomatic})
	if err != nil {
		fields := map[string]interface{}{}
		var backupErr *BackupError
		if errors.As(err, &backupErr) {
			fields = backupErr.Fields()
		}
		fields["error"] = err.Error()
		s.logger.WithFields(fields).Error("Scheduled backup failed")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"backup_id": artifact.Record.ID,
		"file_name": artifact.FileName,
	}).Debug("Scheduled backup completed")
}
