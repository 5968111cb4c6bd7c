package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/database"
	"risk-register-backup/internal/logging"

	"github.com/go-playground/validator/v10"
)

// AppConfig is the root of the configuration file
type AppConfig struct {
	Database      database.DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Backup        backup.Config             `mapstructure:"backup" yaml:"backup"`
	Server        ServerConfig              `mapstructure:"server" yaml:"server"`
	Auth          AuthConfig                `mapstructure:"auth" yaml:"auth"`
	Notifications backup.NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Logging       LoggingConfig             `mapstructure:"logging" yaml:"logging"`
	Display       DisplayConfig             `mapstructure:"display" yaml:"display"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"gt=0"`
}

// AuthConfig configures bearer token verification for the HTTP surface.
// PrivilegedRoles may request automatic exports; BackupRoles may use the
// backup endpoints at all.
type AuthConfig struct {
	Secret          string   `mapstructure:"secret" yaml:"secret"`
	Issuer          string   `mapstructure:"issuer" yaml:"issuer,omitempty"`
	PrivilegedRoles []string `mapstructure:"privileged_roles" yaml:"privileged_roles" validate:"min=1,dive,required"`
	BackupRoles     []string `mapstructure:"backup_roles" yaml:"backup_roles" validate:"min=1,dive,required"`
}

// LoggingConfig mirrors logging.Config in file form
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=quiet normal verbose debug"`
	Format     string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	ShowCaller bool   `mapstructure:"show_caller" yaml:"show_caller"`
}

// DisplayConfig controls CLI output
type DisplayConfig struct {
	Format       string `mapstructure:"format" yaml:"format" validate:"oneof=table json yaml"`
	ColorEnabled bool   `mapstructure:"color_enabled" yaml:"color_enabled"`
}

// Default returns a configuration with every default applied
func Default() *AppConfig {
	c := &AppConfig{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero values in every section
func (c *AppConfig) SetDefaults() {
	c.Database.SetDefaults()
	c.Backup.SetDefaults()

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 64 << 20
	}

	if len(c.Auth.PrivilegedRoles) == 0 {
		c.Auth.PrivilegedRoles = []string{"admin"}
	}
	if len(c.Auth.BackupRoles) == 0 {
		c.Auth.BackupRoles = []string{"admin", "risk_manager"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = string(logging.LogLevelNormal)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Display.Format == "" {
		c.Display.Format = "table"
	}
}

// Validate checks every section and reports all problems at once
func (c *AppConfig) Validate() error {
	var errs []error

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Backup.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backup: %w", err))
	}
	if err := c.Notifications.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("notifications: %w", err))
	}

	for _, section := range []struct {
		name  string
		value any
	}{
		{"server", &c.Server},
		{"auth", &c.Auth},
		{"logging", &c.Logging},
		{"display", &c.Display},
	} {
		if err := validateSection(section.name, section.value); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateForServer additionally requires what the HTTP surface needs
func (c *AppConfig) ValidateForServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("configuration validation failed: auth.secret is required to serve the API")
	}
	return nil
}

// LoggerConfig converts the logging section for logging.NewLogger
func (lc LoggingConfig) LoggerConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:      level,
		Format:     lc.Format,
		ShowCaller: lc.ShowCaller,
		LogFile:    lc.File,
	}, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func validateSection(name string, value any) error {
	err := getValidator().Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%s: %w", name, err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s.%s: %s", name, fe.Field(), describe(fe)))
	}
	return errors.Join(errs...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entry"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
