package backup

import (
	"context"
	"fmt"
	"time"

	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/snapshot"
	"risk-register-backup/internal/store"
)

// ManagerOptions carries the optional collaborators of a Manager
type ManagerOptions struct {
	Repository RecordRepository // defaults to the backup_records table of the store
	Archive    ArchiveProvider
	Notifier   Notifier
	Metrics    *Metrics
	Logger     *logging.Logger
	Clock      func() time.Time
}

// Manager implements BackupManager over a register store
type Manager struct {
	repo        RecordRepository
	collector   *snapshot.Collector
	assembler   *snapshot.Assembler
	restorer    *snapshot.Restorer
	compression *CompressionManager
	retention   *RetentionManager
	archive     ArchiveProvider
	notifier    Notifier
	metrics     *Metrics
	logger      *logging.Logger
	config      Config
	now         func() time.Time
}

// NewManager creates a backup manager. config is defaulted and validated.
func NewManager(s *store.Store, config Config, opts ManagerOptions) (*Manager, error) {
	if s == nil {
		return nil, NewConfigurationError("store is required", nil)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid backup configuration", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	repo := opts.Repository
	if repo == nil {
		repo = NewSQLRecordRepository(s.DB())
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	assembler := snapshot.NewAssembler(config.SystemIdentifier)
	assembler.FormatVersion = config.FormatVersion

	restorer := snapshot.NewRestorer(s, config.RestoreConfig(), logger)
	restorer.SetObserver(opts.Metrics.RecordRestoreRecord)

	return &Manager{
		repo:        repo,
		collector:   snapshot.NewCollector(s, config.LogGroupLimit, logger),
		assembler:   assembler,
		restorer:    restorer,
		compression: NewCompressionManager(),
		retention:   NewRetentionManager(repo, opts.Archive, config.MaxBackups, logger, opts.Metrics),
		archive:     opts.Archive,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		logger:      logger,
		config:      config,
		now:         clock,
	}, nil
}

// Export collects, assembles and serializes the register, then persists a
// completed BackupRecord before returning the artifact. Any failure before
// that point persists a failed record and is returned. Retention and the
// archive copy run afterwards and never fail the export.
func (m *Manager) Export(ctx context.Context, req ExportRequest) (*Artifact, error) {
	if req.Kind == "" {
		req.Kind = KindManual
	}
	if req.Kind != KindManual && req.Kind != KindAutomatic {
		return nil, NewValidationError("backup kind must be manual or automatic", nil).WithContext("kind", req.Kind)
	}

	start := m.now().UTC().Truncate(time.Microsecond)
	fileName := ArtifactFileName(req.Kind, start, m.config.Compression.Algorithm)
	record := newRecord(req, start)

	data, doc, err := m.produce(ctx, start)
	if err != nil {
		m.exportFailed(ctx, record, fileName, start, err)
		return nil, err
	}

	record.complete(fileName, int64(len(data)), doc.Stats)
	if err := m.repo.Create(ctx, record); err != nil {
		m.exportFailed(ctx, newRecord(req, start), fileName, start, err)
		return nil, err
	}

	duration := m.now().Sub(start)
	m.metrics.RecordExport(record.Kind, StatusCompleted, record.FileSizeBytes, duration)
	m.logger.LogSnapshotExport(string(record.Kind), fileName, record.FileSizeBytes, doc.Stats, duration, nil)

	artifact := &Artifact{
		FileName:    fileName,
		ContentType: ContentType(m.config.Compression.Algorithm),
		Data:        data,
		Compression: m.config.Compression.Algorithm,
		Record:      record,
		Document:    doc,
	}

	m.afterExport(ctx, artifact)
	return artifact, nil
}

func (m *Manager) produce(ctx context.Context, createdAt time.Time) ([]byte, *snapshot.Document, error) {
	collection, err := m.collector.Collect(ctx)
	if err != nil {
		return nil, nil, NewCollectionError("failed to collect entity groups", err)
	}

	doc, err := m.assembler.Assemble(collection, createdAt)
	if err != nil {
		return nil, nil, NewValidationError("failed to assemble snapshot", err)
	}

	encoded, err := doc.Encode()
	if err != nil {
		return nil, nil, NewValidationError("failed to serialize snapshot", err)
	}

	data, _, err := m.compression.Compress(encoded, m.config.Compression.Algorithm, m.config.Compression.Level)
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

// exportFailed persists the failed record even when ctx is already cancelled
func (m *Manager) exportFailed(ctx context.Context, record *BackupRecord, fileName string, start time.Time, cause error) {
	record.fail(fileName, cause)
	persistCtx := context.WithoutCancel(ctx)
	if err := m.repo.Create(persistCtx, record); err != nil {
		m.logger.WithFields(map[string]interface{}{
			"backup_id": record.ID,
			"error":     err.Error(),
		}).Error("Failed to record failed backup")
	}

	duration := m.now().Sub(start)
	m.metrics.RecordExport(record.Kind, StatusFailed, 0, duration)
	m.logger.LogSnapshotExport(string(record.Kind), fileName, 0, nil, duration, cause)
	m.notify(persistCtx, &NotificationEvent{
		Type:     EventBackupFailed,
		Message:  fmt.Sprintf("Backup %s failed: %v", fileName, cause),
		BackupID: record.ID,
		Metadata: map[string]interface{}{"kind": string(record.Kind)},
	})
}

func (m *Manager) afterExport(ctx context.Context, artifact *Artifact) {
	if m.archive != nil {
		if err := m.archive.Store(ctx, artifact.FileName, artifact.Data, artifact.ContentType); err != nil {
			m.metrics.RecordArchiveFailure()
			m.logger.WithFields(map[string]interface{}{
				"backup_id": artifact.Record.ID,
				"provider":  string(m.archive.Type()),
				"error":     err.Error(),
			}).Warn("Failed to archive backup artifact")
		}
	}

	if _, err := m.retention.ApplyRetentionPolicy(ctx, false); err != nil {
		m.logger.WithField("error", err.Error()).Error("Retention after export failed")
	}

	m.notify(ctx, &NotificationEvent{
		Type:     EventBackupCompleted,
		Message:  fmt.Sprintf("Backup %s completed", artifact.FileName),
		BackupID: artifact.Record.ID,
		Metadata: map[string]interface{}{
			"kind":       string(artifact.Record.Kind),
			"size_bytes": artifact.Record.FileSizeBytes,
			"records":    artifact.Record.TotalRecords(),
		},
	})
}

// Restore decodes data (plain or compressed) and restores it. An artifact
// that cannot be decompressed is rejected like any other malformed document.
func (m *Manager) Restore(ctx context.Context, data []byte) *snapshot.RestoreOutcome {
	plain, algorithm, err := m.compression.Decode(data)
	var outcome *snapshot.RestoreOutcome
	if err != nil {
		outcome = snapshot.Rejected(fmt.Sprintf("%s artifact could not be decompressed", algorithm))
		m.logger.LogRestoreOutcome(false, nil, nil, 0)
	} else {
		outcome = m.restorer.Restore(ctx, plain)
	}

	m.metrics.RecordRestore(outcome.Accepted)
	if outcome.Accepted {
		m.notify(context.WithoutCancel(ctx), &NotificationEvent{
			Type:    EventRestoreCompleted,
			Message: fmt.Sprintf("Restore applied %d records with %d errors", outcome.Applied(), len(outcome.Errors)),
			Metadata: map[string]interface{}{
				"applied": outcome.Applied(),
				"errors":  len(outcome.Errors),
			},
		})
	} else {
		m.notify(ctx, &NotificationEvent{
			Type:    EventRestoreRejected,
			Message: "Restore rejected: " + outcome.Reason,
		})
	}
	return outcome
}

// Check validates data without writing anything
func (m *Manager) Check(data []byte) *snapshot.RestoreOutcome {
	plain, algorithm, err := m.compression.Decode(data)
	if err != nil {
		return snapshot.Rejected(fmt.Sprintf("%s artifact could not be decompressed", algorithm))
	}
	return m.restorer.Check(plain)
}

// List returns backup records newest first
func (m *Manager) List(ctx context.Context, filter RecordFilter) ([]BackupRecord, error) {
	return m.repo.List(ctx, filter)
}

// Prune applies the retention policy on demand
func (m *Manager) Prune(ctx context.Context, dryRun bool) (*RetentionResult, error) {
	return m.retention.ApplyRetentionPolicy(ctx, dryRun)
}

// Config returns the effective configuration
func (m *Manager) Config() Config {
	return m.config
}

func (m *Manager) notify(ctx context.Context, event *NotificationEvent) {
	if m.notifier == nil {
		return
	}
	event.Timestamp = m.now().UTC()
	m.notifier.Notify(ctx, event)
}
