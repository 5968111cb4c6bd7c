package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel is the operator-facing verbosity
type LogLevel string

const (
	LogLevelQuiet   LogLevel = "quiet"   // errors only
	LogLevelNormal  LogLevel = "normal"  // one line per export, restore and retention pass
	LogLevelVerbose LogLevel = "verbose" // adds per-record restore errors and HTTP access lines
	LogLevelDebug   LogLevel = "debug"
)

var logrusLevels = map[LogLevel]logrus.Level{
	LogLevelQuiet:   logrus.ErrorLevel,
	LogLevelNormal:  logrus.InfoLevel,
	LogLevelVerbose: logrus.DebugLevel,
	LogLevelDebug:   logrus.TraceLevel,
}

type contextKey string

const requestIDKey contextKey = "request_id"

// Logger wraps logrus with the operation summaries the backup engine emits
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Output     io.Writer
	Format     string // "text" or "json"
	ShowCaller bool
	LogFile    string // appended to in addition to Output
}

// NewLogger creates a logger. An empty level means normal and a nil Output
// means stdout.
func NewLogger(config Config) (*Logger, error) {
	level, err := ParseLevel(string(config.Level))
	if err != nil {
		return nil, err
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}
		out = io.MultiWriter(out, file)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(newFormatter(config.Format, config.ShowCaller))
	logger.SetLevel(logrusLevels[level])
	logger.SetReportCaller(config.ShowCaller)

	return &Logger{logger: logger, level: level}, nil
}

func newFormatter(format string, showCaller bool) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	}
	f := &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
	if showCaller {
		f.CallerPrettyfier = func(frame *runtime.Frame) (string, string) {
			return frame.Function + "()", fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
	}
	return f
}

// NewDefaultLogger writes normal-level text logs to stdout
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{Format: "text"})
	return logger
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	logger, _ := NewLogger(Config{Level: LogLevelQuiet, Output: io.Discard})
	return logger
}

// ParseLevel converts a configuration string into a LogLevel
func ParseLevel(value string) (LogLevel, error) {
	if value == "" {
		return LogLevelNormal, nil
	}
	if _, ok := logrusLevels[LogLevel(value)]; !ok {
		return "", fmt.Errorf("unknown log level %q (expected quiet, normal, verbose or debug)", value)
	}
	return LogLevel(value), nil
}

// Level returns the configured verbosity
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithContext returns an entry carrying the request ID stored in ctx, if any
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)
	if requestID := GetRequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return entry
}

func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

func (l *Logger) Info(msg string)                          { l.logger.Info(msg) }
func (l *Logger) Debug(msg string)                         { l.logger.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *Logger) Warn(msg string)                          { l.logger.Warn(msg) }
func (l *Logger) Error(msg string)                         { l.logger.Error(msg) }

func (l *Logger) operation(name string, fields logrus.Fields) *logrus.Entry {
	fields["operation"] = name
	return l.logger.WithFields(fields)
}

// LogDatabaseConnection logs one connection attempt
func (l *Logger) LogDatabaseConnection(driver, target string, success bool, duration time.Duration, err error) {
	fields := logrus.Fields{"driver": driver, "target": target, "duration": duration.String(), "success": success}
	if success {
		l.operation("database_connection", fields).Info("Database connection established")
		return
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.operation("database_connection", fields).Error("Database connection failed")
}

// LogSnapshotExport logs the result of one export attempt. stats maps group
// names to record counts.
func (l *Logger) LogSnapshotExport(kind, fileName string, sizeBytes int64, stats map[string]int, duration time.Duration, err error) {
	fields := logrus.Fields{"kind": kind, "duration": duration.String()}
	if err != nil {
		fields["error"] = err.Error()
		l.operation("snapshot_export", fields).Error("Snapshot export failed")
		return
	}

	fields["file"] = fileName
	fields["size_bytes"] = sizeBytes
	fields["groups"] = len(stats)
	fields["records"] = sum(stats)
	l.operation("snapshot_export", fields).Info("Snapshot export completed")
}

// LogRestoreOutcome logs the summary of one restore invocation. Individual
// record errors are logged at debug level.
func (l *Logger) LogRestoreOutcome(accepted bool, counts map[string]int, recordErrors []string, duration time.Duration) {
	fields := logrus.Fields{"accepted": accepted, "duration": duration.String(), "errors": len(recordErrors)}
	if !accepted {
		l.operation("snapshot_restore", fields).Warn("Snapshot restore rejected")
		return
	}

	fields["applied"] = sum(counts)
	if len(recordErrors) == 0 {
		l.operation("snapshot_restore", fields).Info("Snapshot restore completed")
		return
	}

	l.operation("snapshot_restore", fields).Warn("Snapshot restore completed with record errors")
	for _, msg := range recordErrors {
		l.operation("snapshot_restore", logrus.Fields{}).Debug(msg)
	}
}

// LogRetention logs a retention pass
func (l *Logger) LogRetention(processed, deleted int, dryRun bool, errs []string) {
	fields := logrus.Fields{"processed": processed, "deleted": deleted, "dry_run": dryRun}
	if len(errs) > 0 {
		fields["errors"] = len(errs)
		l.operation("backup_retention", fields).Warn("Backup retention completed with errors")
		return
	}
	l.operation("backup_retention", fields).Info("Backup retention completed")
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// CreateContextWithRequestID stores a request ID for WithContext to pick up
func CreateContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestIDFromContext extracts request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
