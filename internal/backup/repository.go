package backup

import (
	"context"

	"risk-register-backup/internal/store"

	"github.com/jmoiron/sqlx"
)

// RecordsTable is the SQL table holding BackupRecord rows
const RecordsTable = "backup_records"

// SQLRecordRepository stores records in the register database
type SQLRecordRepository struct {
	table *store.Table[BackupRecord]
}

// NewSQLRecordRepository creates a repository over db
func NewSQLRecordRepository(db *sqlx.DB) *SQLRecordRepository {
	return &SQLRecordRepository{table: store.NewTable[BackupRecord](db, RecordsTable)}
}

// Create inserts record after validating it
func (r *SQLRecordRepository) Create(ctx context.Context, record *BackupRecord) error {
	if record == nil {
		return NewValidationError("backup record cannot be nil", nil)
	}
	if err := record.Validate(); err != nil {
		return NewValidationError("invalid backup record", err)
	}
	if err := r.table.Create(ctx, *record); err != nil {
		return NewDatabaseError("failed to save backup record", err).WithContext("backup_id", record.ID)
	}
	return nil
}

// List returns records newest first
func (r *SQLRecordRepository) List(ctx context.Context, filter RecordFilter) ([]BackupRecord, error) {
	opts := store.FindOptions{
		OrderBy:    "created_at",
		Descending: true,
		Limit:      filter.Limit,
	}
	if filter.Status != "" {
		opts.Where = map[string]interface{}{"status": string(filter.Status)}
	}

	records, err := r.table.FindMany(ctx, opts)
	if err != nil {
		return nil, NewDatabaseError("failed to list backup records", err)
	}
	return records, nil
}

// Delete removes the record with the given ID
func (r *SQLRecordRepository) Delete(ctx context.Context, id string) error {
	if err := r.table.Delete(ctx, id); err != nil {
		return NewDatabaseError("failed to delete backup record", err).WithContext("backup_id", id)
	}
	return nil
}
