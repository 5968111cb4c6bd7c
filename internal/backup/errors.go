package backup

import (
	"errors"
	"fmt"
	"maps"
)

// BackupErrorType classifies failures of export, retention and archive
// operations. The API maps it onto HTTP status codes.
type BackupErrorType string

const (
	BackupErrorTypeCollection    BackupErrorType = "COLLECTION_ERROR"
	BackupErrorTypeStorage       BackupErrorType = "STORAGE_ERROR"
	BackupErrorTypeValidation    BackupErrorType = "VALIDATION_ERROR"
	BackupErrorTypeCompression   BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypePermission    BackupErrorType = "PERMISSION_ERROR"
	BackupErrorTypeDatabase      BackupErrorType = "DATABASE_ERROR"
	BackupErrorTypeConfiguration BackupErrorType = "CONFIGURATION_ERROR"
	BackupErrorTypeNotFound      BackupErrorType = "NOT_FOUND_ERROR"
)

// BackupError is a typed failure carrying the key/value pairs that locate it
type BackupError struct {
	Type    BackupErrorType `json:"type"`
	Message string          `json:"message"`
	Cause   error           `json:"-"`
	Context map[string]any  `json:"context,omitempty"`
}

func newError(t BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{Type: t, Message: message, Cause: cause, Context: map[string]any{}}
}

func (e *BackupError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

func (e *BackupError) Unwrap() error {
	return e.Cause
}

// WithContext records where the error happened, e.g. the object key or record id
func (e *BackupError) WithContext(key string, value any) *BackupError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// Fields returns a copy of the context plus the error type for structured logging
func (e *BackupError) Fields() map[string]any {
	fields := make(map[string]any, len(e.Context)+1)
	maps.Copy(fields, e.Context)
	fields["error_type"] = string(e.Type)
	return fields
}

func NewCollectionError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeCollection, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeStorage, message, cause)
}

func NewValidationError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeValidation, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeCompression, message, cause)
}

func NewPermissionError(message string, cause error) *BackupError {
	return newError(BackupErrorTypePermission, message, cause)
}

func NewDatabaseError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeDatabase, message, cause)
}

func NewConfigurationError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeConfiguration, message, cause)
}

func NewNotFoundError(message string, cause error) *BackupError {
	return newError(BackupErrorTypeNotFound, message, cause)
}

// ErrorType returns the BackupErrorType in err's chain, or "" if there is none
func ErrorType(err error) BackupErrorType {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type
	}
	return ""
}

// ValidationError is one rejected configuration field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every rejected field of a configuration section
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	default:
		return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
	}
}

// Add appends a field error
func (e *ValidationErrors) Add(field, message string, value any) {
	*e = append(*e, ValidationError{Field: field, Message: message, Value: value})
}

// HasErrors reports whether any field was rejected
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Merge folds err into e, flattening nested ValidationErrors and recording
// plain errors under field
func (e *ValidationErrors) Merge(field string, err error) {
	if err == nil {
		return
	}
	var nested ValidationErrors
	if errors.As(err, &nested) {
		*e = append(*e, nested...)
		return
	}
	e.Add(field, err.Error(), nil)
}
