package backup

import (
	"risk-register-backup/internal/snapshot"
)

// Kind distinguishes operator-triggered exports from scheduled ones
type Kind string

const (
	KindManual    Kind = "manual"
	KindAutomatic Kind = "automatic"
)

// ParseKind accepts "", "manual" and "automatic". Empty means manual.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case "", KindManual:
		return KindManual, nil
	case KindAutomatic:
		return KindAutomatic, nil
	default:
		return "", NewValidationError("backup kind must be manual or automatic", nil).WithContext("kind", value)
	}
}

// Status of one export attempt
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// CompressionType names an artifact encoding
type CompressionType string

const (
	CompressionTypeNone CompressionType = "none"
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeLZ4  CompressionType = "lz4"
	CompressionTypeZstd CompressionType = "zstd"
)

// StorageProviderType names an offsite archive backend
type StorageProviderType string

const (
	StorageProviderLocal StorageProviderType = "local"
	StorageProviderS3    StorageProviderType = "s3"
	StorageProviderAzure StorageProviderType = "azure"
	StorageProviderGCS   StorageProviderType = "gcs"
)

// ExportRequest carries who asked for an export and how
type ExportRequest struct {
	Kind   Kind
	UserID string // empty for scheduled exports
}

// Artifact is the downloadable result of a completed export
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
	Compression CompressionType
	Record      *BackupRecord
	Document    *snapshot.Document
}

// RecordFilter narrows List. Zero values mean no filter.
type RecordFilter struct {
	Status Status
	Limit  int
}
