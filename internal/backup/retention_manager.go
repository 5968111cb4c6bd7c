package backup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"risk-register-backup/internal/logging"
)

// RetentionResult represents the result of one retention pass
type RetentionResult struct {
	TotalBackupsProcessed int            `json:"total_backups_processed" yaml:"total_backups_processed"`
	BackupsDeleted        int            `json:"backups_deleted" yaml:"backups_deleted"`
	BackupsKept           int            `json:"backups_kept" yaml:"backups_kept"`
	DeletedBackups        []BackupRecord `json:"deleted_backups" yaml:"deleted_backups"`
	KeptBackups           []BackupRecord `json:"kept_backups" yaml:"kept_backups"`
	Errors                []string       `json:"errors" yaml:"errors"`
	ProcessingTime        time.Duration  `json:"processing_time" yaml:"processing_time"`
	DryRun                bool           `json:"dry_run" yaml:"dry_run"`
}

// RetentionManager keeps at most maxBackups completed records, newest first.
// Failed records are never touched.
type RetentionManager struct {
	repo       RecordRepository
	archive    ArchiveProvider
	maxBackups int
	logger     *logging.Logger
	metrics    *Metrics

	mu sync.Mutex
}

// NewRetentionManager creates a retention manager. archive and metrics may be nil.
func NewRetentionManager(repo RecordRepository, archive ArchiveProvider, maxBackups int, logger *logging.Logger, metrics *Metrics) *RetentionManager {
	if maxBackups < 1 {
		maxBackups = DefaultMaxBackups
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RetentionManager{
		repo:       repo,
		archive:    archive,
		maxBackups: maxBackups,
		logger:     logger,
		metrics:    metrics,
	}
}

// ApplyRetentionPolicy deletes every completed record beyond the newest
// maxBackups, together with its archived artifact. Individual delete
// failures are collected in the result; only a failed listing is returned
// as an error. Re-running after a partial failure finishes the job.
func (rm *RetentionManager) ApplyRetentionPolicy(ctx context.Context, dryRun bool) (*RetentionResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	startTime := time.Now()

	backups, err := rm.repo.List(ctx, RecordFilter{Status: StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed backups: %w", err)
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	toKeep := backups
	var toDelete []BackupRecord
	if len(backups) > rm.maxBackups {
		toKeep = backups[:rm.maxBackups]
		toDelete = backups[rm.maxBackups:]
	}

	result := &RetentionResult{
		TotalBackupsProcessed: len(backups),
		BackupsKept:           len(toKeep),
		KeptBackups:           toKeep,
		DeletedBackups:        []BackupRecord{},
		Errors:                []string{},
		DryRun:                dryRun,
	}

	if dryRun {
		result.DeletedBackups = toDelete
		result.BackupsDeleted = len(toDelete)
	} else {
		for _, backup := range toDelete {
			if err := rm.deleteBackup(ctx, backup); err != nil {
				errorMsg := fmt.Sprintf("failed to delete backup %s: %v", backup.ID, err)
				result.Errors = append(result.Errors, errorMsg)
				rm.logger.Error(errorMsg)
				continue
			}
			result.DeletedBackups = append(result.DeletedBackups, backup)
			result.BackupsDeleted++
			rm.logger.WithFields(map[string]interface{}{
				"backup_id":  backup.ID,
				"file_name":  backup.FileName,
				"created_at": backup.CreatedAt.Format(time.RFC3339),
			}).Debug("Deleted backup beyond retention")
		}
		rm.metrics.RecordRetention(result.BackupsDeleted)
	}

	result.ProcessingTime = time.Since(startTime)
	rm.logger.LogRetention(result.TotalBackupsProcessed, result.BackupsDeleted, dryRun, result.Errors)

	return result, nil
}

// deleteBackup removes the archived copy, then the record. An archive
// failure is logged and the record is still deleted.
func (rm *RetentionManager) deleteBackup(ctx context.Context, backup BackupRecord) error {
	if rm.archive != nil {
		if err := rm.archive.Delete(ctx, backup.FileName); err != nil {
			rm.metrics.RecordArchiveFailure()
			rm.logger.WithFields(map[string]interface{}{
				"backup_id": backup.ID,
				"provider":  string(rm.archive.Type()),
				"error":     err.Error(),
			}).Warn("Failed to delete archived artifact")
		}
	}
	return rm.repo.Delete(ctx, backup.ID)
}

// MaxBackups returns the retention bound
func (rm *RetentionManager) MaxBackups() int {
	return rm.maxBackups
}
