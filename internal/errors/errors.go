// Package errors classifies driver, network and file system failures so
// callers can decide whether to retry and how to report a failed record.
package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConnection   ErrorType = "connection"
	ErrorTypeSQL          ErrorType = "sql"
	ErrorTypeSchema       ErrorType = "schema"     // missing tables or columns
	ErrorTypeConstraint   ErrorType = "constraint" // foreign key, unique and not-null violations
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeInterruption ErrorType = "interruption"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// AppError is a classified error. Recoverable errors are worth retrying.
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// WithContext attaches a key/value pair and returns e for chaining
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// rule describes how one driver error code is reported
type rule struct {
	kind        ErrorType
	message     string
	recoverable bool
}

func (r rule) apply(cause error) *AppError {
	appErr := NewAppError(r.kind, r.message, cause)
	appErr.Recoverable = r.recoverable
	return appErr
}

const (
	msgDuplicate   = "Duplicate entry - a record with this key already exists"
	msgMissingRef  = "Referenced record does not exist"
	msgRequiredNil = "Required column is null"
)

var mysqlRules = map[uint16]rule{
	1045: {ErrorTypePermission, "Database access denied - check username and password", false},
	1049: {ErrorTypeValidation, "Database does not exist", false},
	1146: {ErrorTypeSchema, "Table does not exist - run 'db init' first", false},
	1054: {ErrorTypeSchema, "Column does not exist", false},
	1062: {ErrorTypeConstraint, msgDuplicate, false},
	1451: {ErrorTypeConstraint, "Record is still referenced by other records", false},
	1452: {ErrorTypeConstraint, msgMissingRef, false},
	1048: {ErrorTypeConstraint, msgRequiredNil, false},
	1205: {ErrorTypeSQL, "Transient lock conflict", true},
	1213: {ErrorTypeSQL, "Transient lock conflict", true},
	2003: {ErrorTypeConnection, "Cannot connect to MySQL server - server may be down or unreachable", true},
	2006: {ErrorTypeConnection, "MySQL server connection lost", true},
	2013: {ErrorTypeConnection, "MySQL server connection lost", true},
}

var sqliteRules = map[int]rule{
	sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY: {ErrorTypeConstraint, msgMissingRef, false},
	sqlite3.SQLITE_CONSTRAINT_UNIQUE:     {ErrorTypeConstraint, msgDuplicate, false},
	sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: {ErrorTypeConstraint, msgDuplicate, false},
	sqlite3.SQLITE_CONSTRAINT_NOTNULL:    {ErrorTypeConstraint, msgRequiredNil, false},
	sqlite3.SQLITE_CONSTRAINT:            {ErrorTypeConstraint, "Constraint violation", false},
	sqlite3.SQLITE_CONSTRAINT_CHECK:      {ErrorTypeConstraint, "Constraint violation", false},
	sqlite3.SQLITE_BUSY:                  {ErrorTypeSQL, "Database is locked", true},
	sqlite3.SQLITE_LOCKED:                {ErrorTypeSQL, "Database is locked", true},
	sqlite3.SQLITE_CANTOPEN:              {ErrorTypeConnection, "Cannot open database file", false},
}

// ErrorClassifier maps driver, network, context and file system errors onto AppError
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError returns err as an AppError. Errors already classified are
// returned unchanged; anything unrecognised becomes ErrorTypeUnknown.
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, classify := range []func(error) *AppError{
		classifyMySQL,
		classifySQLite,
		classifyDatabaseSQL,
		classifyContext,
		classifyNetwork,
		classifyPath,
	} {
		if classified := classify(err); classified != nil {
			return classified
		}
	}
	return NewAppError(ErrorTypeUnknown, "An unexpected error occurred", err)
}

func classifyMySQL(err error) *AppError {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return nil
	}
	r, ok := mysqlRules[mysqlErr.Number]
	if !ok {
		r = rule{kind: ErrorTypeSQL, message: fmt.Sprintf("MySQL error: %s", mysqlErr.Message)}
	}
	return r.apply(err).WithContext("mysql_error_code", mysqlErr.Number)
}

func classifySQLite(err error) *AppError {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	code := sqliteErr.Code()
	r, ok := sqliteRules[code]
	if !ok {
		r = rule{kind: ErrorTypeSQL, message: fmt.Sprintf("SQLite error: %s", sqlite.ErrorCodeString[code])}
	}
	return r.apply(err).WithContext("sqlite_error_code", code)
}

func classifyDatabaseSQL(err error) *AppError {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return NewAppError(ErrorTypeNotFound, "No rows found", err)
	case errors.Is(err, sql.ErrTxDone):
		return NewAppError(ErrorTypeSQL, "Transaction has already been committed or rolled back", err)
	case errors.Is(err, sql.ErrConnDone):
		return rule{ErrorTypeConnection, "Database connection is closed", true}.apply(err)
	}
	return nil
}

func classifyNetwork(err error) *AppError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return rule{ErrorTypeTimeout, "Network operation timed out", true}.apply(err)
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return nil
	}
	switch opErr.Op {
	case "dial":
		return rule{ErrorTypeConnection, "Failed to establish network connection", true}.apply(err)
	case "read", "write":
		return rule{ErrorTypeConnection, "Network I/O error", true}.apply(err)
	}
	return nil
}

func classifyContext(err error) *AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return rule{ErrorTypeTimeout, "Operation timed out", true}.apply(err)
	case errors.Is(err, context.Canceled):
		return NewAppError(ErrorTypeInterruption, "Operation was canceled", err)
	}
	return nil
}

func classifyPath(err error) *AppError {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return nil
	}
	switch {
	case errors.Is(pathErr.Err, syscall.ENOENT):
		return NewAppError(ErrorTypeNotFound, fmt.Sprintf("File or directory not found: %s", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.EACCES):
		return NewAppError(ErrorTypePermission, fmt.Sprintf("Permission denied: %s", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.ENOSPC):
		return NewAppError(ErrorTypeValidation, "No space left on device", err)
	}
	return nil
}

// RetryConfig controls exponential backoff between attempts
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// RetryHandler retries operations whose errors classify as recoverable
type RetryHandler struct {
	config     RetryConfig
	classifier *ErrorClassifier
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(config RetryConfig) *RetryHandler {
	config.MaxAttempts = max(config.MaxAttempts, 1)
	config.Multiplier = max(config.Multiplier, 1)
	return &RetryHandler{config: config, classifier: NewErrorClassifier()}
}

// NewDefaultRetryHandler retries three times starting at one second
func NewDefaultRetryHandler() *RetryHandler {
	return NewRetryHandler(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	})
}

// Retry executes operation until it succeeds, fails with a non-recoverable
// error, or runs out of attempts.
func (rh *RetryHandler) Retry(ctx context.Context, operation func() error) error {
	var last *AppError

	for attempt := 1; attempt <= rh.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return NewAppError(ErrorTypeInterruption, "Operation canceled", err)
		}

		err := operation()
		if err == nil {
			return nil
		}
		last = rh.classifier.ClassifyError(err)
		if !last.IsRecoverable() {
			return last
		}
		if attempt == rh.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(rh.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return NewAppError(ErrorTypeInterruption, "Operation canceled during retry", ctx.Err())
		case <-timer.C:
		}
	}

	return last.WithContext("attempts", rh.config.MaxAttempts)
}

// calculateDelay returns BaseDelay * Multiplier^(attempt-1), capped at MaxDelay
func (rh *RetryHandler) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(rh.config.BaseDelay) * math.Pow(rh.config.Multiplier, float64(attempt-1)))
	if rh.config.MaxDelay > 0 && delay > rh.config.MaxDelay {
		return rh.config.MaxDelay
	}
	return delay
}

// GetErrorType returns the error type of an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// WrapError classifies err and replaces its message, keeping the original in the chain
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		wrapped := NewAppError(appErr.Type, message, err)
		wrapped.Recoverable = appErr.Recoverable
		return wrapped
	}

	classified := NewErrorClassifier().ClassifyError(err)
	classified.Message = message
	return classified
}

// Describe renders err for a per-record error list: the classified message
// followed by the driver text.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewErrorClassifier().ClassifyError(err)
		if appErr.Type == ErrorTypeUnknown {
			return err.Error()
		}
		return fmt.Sprintf("%s (%v)", appErr.Message, rootCause(err))
	}

	switch {
	case appErr.Cause == nil:
		return appErr.Message
	case appErr.Type == ErrorTypeUnknown:
		return appErr.Cause.Error()
	default:
		return fmt.Sprintf("%s (%v)", appErr.Message, rootCause(appErr.Cause))
	}
}

func rootCause(err error) error {
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return err
}
