package database

import (
	"context"
	"time"

	"risk-register-backup/internal/errors"
	"risk-register-backup/internal/logging"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Service opens and verifies connections to the risk register store
type Service struct {
	connectionTimeout time.Duration
	logger            *logging.Logger
	retryHandler      *errors.RetryHandler
}

// NewServiceWithLogger creates a new database service with a custom logger
func NewServiceWithLogger(logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logger,
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// NewServiceWithOptions creates a new database service with custom retry behaviour
func NewServiceWithOptions(logger *logging.Logger, timeout time.Duration, retry errors.RetryConfig) *Service {
	s := NewServiceWithLogger(logger)
	s.connectionTimeout = timeout
	s.retryHandler = errors.NewRetryHandler(retry)
	return s
}

// Connect opens the configured store and pings it, retrying recoverable failures
func (s *Service) Connect(config DatabaseConfig) (*sqlx.DB, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "invalid database configuration", err)
	}

	startTime := time.Now()
	s.logger.WithFields(map[string]interface{}{
		"driver": config.Driver,
		"target": config.Target(),
	}).Debug("Attempting database connection")

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	var db *sqlx.DB
	err := s.retryHandler.Retry(ctx, func() error {
		conn, openErr := sqlx.Open(config.Driver, config.DSN())
		if openErr != nil {
			return errors.WrapError(openErr, "failed to open database connection")
		}

		if config.Driver == DriverSQLite {
			// One writer at a time; also keeps ":memory:" databases on a single connection.
			conn.SetMaxOpenConns(1)
		} else {
			conn.SetMaxOpenConns(config.MaxOpenConns)
			conn.SetMaxIdleConns(config.MaxIdleConns)
			conn.SetConnMaxLifetime(config.ConnMaxLifetime)
		}

		if pingErr := s.TestConnection(ctx, conn); pingErr != nil {
			conn.Close()
			return pingErr
		}

		db = conn
		return nil
	})

	s.logger.LogDatabaseConnection(config.Driver, config.Target(), err == nil, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// TestConnection verifies that the database connection is working
func (s *Service) TestConnection(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database")
	}
	return nil
}

// Close closes the database connection
func (s *Service) Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}

	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.WrapError(err, "failed to close database connection")
	}
	s.logger.Debug("Database connection closed")
	return nil
}
