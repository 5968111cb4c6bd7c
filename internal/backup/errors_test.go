package backup

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("bucket missing")
	err := NewStorageError("failed to upload artifact", cause).WithContext("key", "nightly/a.json")

	assert.Equal(t, "STORAGE_ERROR: failed to upload artifact (caused by: bucket missing)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NOT_FOUND_ERROR: no such record", NewNotFoundError("no such record", nil).Error())
}

func TestBackupError_Fields(t *testing.T) {
	err := NewCollectionError("failed to read group", nil).WithContext("group", "risks")

	fields := err.Fields()
	assert.Equal(t, map[string]any{"group": "risks", "error_type": "COLLECTION_ERROR"}, fields)

	fields["group"] = "changed"
	assert.Equal(t, "risks", err.Context["group"])

	bare := &BackupError{Type: BackupErrorTypeDatabase}
	assert.Equal(t, map[string]any{"error_type": "DATABASE_ERROR"}, bare.Fields())
}

func TestErrorType(t *testing.T) {
	wrapped := fmt.Errorf("export: %w", NewCompressionError("bad level", nil))

	assert.Equal(t, BackupErrorTypeCompression, ErrorType(wrapped))
	assert.Equal(t, BackupErrorType(""), ErrorType(errors.New("plain")))
	assert.Equal(t, BackupErrorType(""), ErrorType(nil))
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("max_backups", "at least one backup must be retained", 0)
	assert.Equal(t, "max_backups: at least one backup must be retained", errs.Error())

	errs.Merge("schedule", ValidationErrors{{Field: "schedule.interval", Message: "too short"}})
	errs.Merge("archive", errors.New("unreachable"))
	errs.Merge("ignored", nil)

	require.Len(t, errs, 3)
	assert.Equal(t, "schedule.interval", errs[1].Field)
	assert.Equal(t, ValidationError{Field: "archive", Message: "unreachable"}, errs[2])
	assert.Equal(t, "3 validation errors: max_backups: at least one backup must be retained (and 2 more)", errs.Error())
}
