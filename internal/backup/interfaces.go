package backup

import (
	"context"

	"risk-register-backup/internal/snapshot"
)

// BackupManager orchestrates export, restore and record management
type BackupManager interface {
	Export(ctx context.Context, req ExportRequest) (*Artifact, error)
	Restore(ctx context.Context, data []byte) *snapshot.RestoreOutcome
	Check(data []byte) *snapshot.RestoreOutcome
	List(ctx context.Context, filter RecordFilter) ([]BackupRecord, error)

	// Prune applies the retention policy on demand
	Prune(ctx context.Context, dryRun bool) (*RetentionResult, error)
}

// RecordRepository persists BackupRecord rows. Records are written once and
// only ever deleted by retention.
type RecordRepository interface {
	Create(ctx context.Context, record *BackupRecord) error
	List(ctx context.Context, filter RecordFilter) ([]BackupRecord, error)
	Delete(ctx context.Context, id string) error
}

// ArchiveProvider abstracts the offsite copy of completed artifacts
type ArchiveProvider interface {
	Store(ctx context.Context, name string, data []byte, contentType string) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	HealthCheck(ctx context.Context) error
	Type() StorageProviderType
}

// Notifier receives backup and restore events
type Notifier interface {
	Notify(ctx context.Context, event *NotificationEvent)
}
