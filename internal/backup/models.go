package backup

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileNamePrefix starts every artifact file name
const FileNamePrefix = "risk-register-backup"

// BackupRecord is the metadata row written once per export attempt
type BackupRecord struct {
	ID              string    `db:"id" json:"id" yaml:"id"`
	FileName        string    `db:"file_name" json:"fileName" yaml:"file_name"`
	FileSizeBytes   int64     `db:"file_size_bytes" json:"fileSizeBytes" yaml:"file_size_bytes"`
	Kind            Kind      `db:"backup_kind" json:"backupKind" yaml:"backup_kind"`
	Status          Status    `db:"status" json:"status" yaml:"status"`
	CreatedByUserID *string   `db:"created_by_user_id" json:"createdByUserId" yaml:"created_by_user_id"`
	StatsSnapshot   Stats     `db:"stats_snapshot" json:"statsSnapshot" yaml:"stats_snapshot"`
	ErrorMessage    *string   `db:"error_message" json:"errorMessage" yaml:"error_message,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt" yaml:"created_at"`
}

// Validate validates the BackupRecord
func (r *BackupRecord) Validate() error {
	var errors ValidationErrors

	if r.ID == "" {
		errors.Add("id", "backup ID is required", r.ID)
	}
	if r.FileName == "" {
		errors.Add("file_name", "file name is required", r.FileName)
	}
	if r.Kind != KindManual && r.Kind != KindAutomatic {
		errors.Add("backup_kind", "backup kind must be manual or automatic", r.Kind)
	}
	switch r.Status {
	case StatusCompleted:
		if r.ErrorMessage != nil {
			errors.Add("error_message", "completed backups carry no error message", *r.ErrorMessage)
		}
	case StatusFailed:
		if r.ErrorMessage == nil || *r.ErrorMessage == "" {
			errors.Add("error_message", "failed backups must carry an error message", nil)
		}
	default:
		errors.Add("status", "status must be completed or failed", r.Status)
	}
	if r.FileSizeBytes < 0 {
		errors.Add("file_size_bytes", "file size cannot be negative", r.FileSizeBytes)
	}
	if r.CreatedAt.IsZero() {
		errors.Add("created_at", "creation time is required", nil)
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// Completed reports whether the record describes a usable artifact
func (r *BackupRecord) Completed() bool {
	return r.Status == StatusCompleted
}

// TotalRecords sums the per-group counts of the snapshot
func (r *BackupRecord) TotalRecords() int {
	total := 0
	for _, n := range r.StatsSnapshot {
		total += n
	}
	return total
}

func newRecord(req ExportRequest, createdAt time.Time) *BackupRecord {
	rec := &BackupRecord{
		ID:            uuid.NewString(),
		Kind:          req.Kind,
		StatsSnapshot: Stats{},
		CreatedAt:     createdAt.UTC(),
	}
	if req.UserID != "" {
		userID := req.UserID
		rec.CreatedByUserID = &userID
	}
	return rec
}

func (r *BackupRecord) complete(fileName string, size int64, stats map[string]int) {
	r.Status = StatusCompleted
	r.FileName = fileName
	r.FileSizeBytes = size
	r.StatsSnapshot = Stats(stats)
	r.ErrorMessage = nil
}

func (r *BackupRecord) fail(fileName string, err error) {
	msg := err.Error()
	r.Status = StatusFailed
	r.FileName = fileName
	r.FileSizeBytes = 0
	r.ErrorMessage = &msg
}

// ArtifactFileName builds the download name: prefix, kind, UTC timestamp and encoding extension
func ArtifactFileName(kind Kind, createdAt time.Time, compression CompressionType) string {
	return fmt.Sprintf("%s-%s-%s%s", FileNamePrefix, kind, createdAt.UTC().Format("2006-01-02T15-04-05Z"), Extension(compression))
}

// Stats is a group name to record count map stored as JSON text
type Stats map[string]int

// Value implements driver.Valuer
func (s Stats) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]int(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (s *Stats) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = Stats{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Stats", value)
	}

	if len(data) == 0 {
		*s = Stats{}
		return nil
	}
	decoded := map[string]int{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("invalid stats snapshot: %w", err)
	}
	*s = Stats(decoded)
	return nil
}
