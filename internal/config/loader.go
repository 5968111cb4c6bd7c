package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. RISK_BACKUP_DATABASE_PATH
	EnvPrefix = "RISK_BACKUP"
	// FileName is the config file searched for in $HOME and the working directory
	FileName = ".risk-register-backup"
)

// optionalKeys have no default but may still be set from the environment
var optionalKeys = []string{
	"database.host",
	"database.username",
	"database.password",
	"database.database",
	"database.path",
	"backup.archive.s3.bucket",
	"backup.archive.s3.region",
	"backup.archive.s3.access_key",
	"backup.archive.s3.secret_key",
	"backup.archive.s3.endpoint",
	"backup.archive.azure.account_name",
	"backup.archive.azure.account_key",
	"backup.archive.azure.container_name",
	"backup.archive.gcs.bucket",
	"backup.archive.gcs.credentials_path",
	"backup.archive.gcs.project_id",
	"notifications.webhook.url",
	"notifications.file.path",
	"auth.secret",
	"auth.issuer",
	"logging.file",
}

// NewViper returns a viper instance wired for this application's
// config file name, environment prefix and defaults
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetViperDefaults(v)
	for _, key := range optionalKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// SetViperDefaults registers every default so that environment variables
// resolve for keys missing from the config file
func SetViperDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.timeout", d.Database.Timeout)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("backup.max_backups", d.Backup.MaxBackups)
	v.SetDefault("backup.system_identifier", d.Backup.SystemIdentifier)
	v.SetDefault("backup.origin_tag", d.Backup.OriginTag)
	v.SetDefault("backup.format_version", d.Backup.FormatVersion)
	v.SetDefault("backup.accepted_versions", d.Backup.AcceptedVersions)
	v.SetDefault("backup.log_group_limit", d.Backup.LogGroupLimit)
	v.SetDefault("backup.record_timeout", d.Backup.RecordTimeout)
	v.SetDefault("backup.compression.algorithm", string(d.Backup.Compression.Algorithm))
	v.SetDefault("backup.compression.level", d.Backup.Compression.Level)
	v.SetDefault("backup.archive.enabled", d.Backup.Archive.Enabled)
	v.SetDefault("backup.archive.provider", string(d.Backup.Archive.Provider))
	v.SetDefault("backup.archive.prefix", d.Backup.Archive.Prefix)
	v.SetDefault("backup.schedule.enabled", d.Backup.Schedule.Enabled)
	v.SetDefault("backup.schedule.interval", d.Backup.Schedule.Interval)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)

	v.SetDefault("auth.privileged_roles", d.Auth.PrivilegedRoles)
	v.SetDefault("auth.backup_roles", d.Auth.BackupRoles)

	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.log", d.Notifications.Log)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.show_caller", d.Logging.ShowCaller)

	v.SetDefault("display.format", d.Display.Format)
	v.SetDefault("display.color_enabled", true)
}

// Load reads the config file (explicit path, or the first of $HOME and the
// working directory holding FileName), applies environment overrides and
// defaults, and returns the validated configuration. A missing default
// config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, cfgFile string) (*AppConfig, error) {
	if err := readConfigFile(v, cfgFile); err != nil {
		return nil, err
	}

	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ConfigFileUsed reports the file Load read, or "" when defaults and
// environment alone were used
func ConfigFileUsed(v *viper.Viper) string {
	return v.ConfigFileUsed()
}

func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigName(FileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
