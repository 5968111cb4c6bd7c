// Package backup provides snapshot export, restore and retention for the risk register.
//
// The package wraps the snapshot pipelines with the operational concerns around them:
//
// - Manager: exports the register into a downloadable artifact, records every
// attempt as a BackupRecord and restores uploaded artifacts
// - RetentionManager: keeps the newest completed records and deletes the rest
// - CompressionManager: optional gzip, lz4 or zstd encoding of artifacts
// - ArchiveProvider: optional offsite copy of completed artifacts (local, S3, Azure, GCS)
// - NotificationManager: webhook, file and log channels for backup and restore events
// - Scheduler: periodic automatic exports
//
// Every export attempt leaves exactly one record. A completed record is
// persisted before the artifact is handed to the caller, so retention and
// the archive copy never affect whether an export succeeded.
package backup
