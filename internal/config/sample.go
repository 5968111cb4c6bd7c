package config

import (
	"fmt"
	"os"
	"path/filepath"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/database"

	"gopkg.in/yaml.v3"
)

// Sample returns a documented starting configuration using SQLite and a
// local archive directory
func Sample() *AppConfig {
	c := &AppConfig{
		Database: database.DatabaseConfig{
			Driver: database.DriverSQLite,
			Path:   "risk-register.db",
		},
		Backup: backup.Config{
			Compression: backup.CompressionConfig{Algorithm: backup.CompressionTypeGzip},
			Archive: backup.ArchiveConfig{
				Enabled:  true,
				Provider: backup.StorageProviderLocal,
				Local:    &backup.LocalConfig{BasePath: "./backups"},
			},
		},
		Notifications: backup.NotificationConfig{
			Enabled: true,
			Log:     true,
			Events:  []backup.EventType{backup.EventBackupFailed, backup.EventRestoreRejected},
		},
		Display: DisplayConfig{ColorEnabled: true},
	}
	c.SetDefaults()
	return c
}

// MarshalYAML renders the configuration as it would appear on disk
func MarshalYAML(c *AppConfig) ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return data, nil
}

// WriteFile writes the configuration to path, refusing to replace an
// existing file unless force is set
func WriteFile(c *AppConfig, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	data, err := MarshalYAML(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const redactedValue = "********"

// Redacted returns a copy of c with credentials masked, for display
func Redacted(c *AppConfig) *AppConfig {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedValue
	}

	out.Database.Password = mask(c.Database.Password)
	out.Auth.Secret = mask(c.Auth.Secret)

	if s3 := c.Backup.Archive.S3; s3 != nil {
		cp := *s3
		cp.AccessKey = mask(cp.AccessKey)
		cp.SecretKey = mask(cp.SecretKey)
		out.Backup.Archive.S3 = &cp
	}
	if az := c.Backup.Archive.Azure; az != nil {
		cp := *az
		cp.AccountKey = mask(cp.AccountKey)
		out.Backup.Archive.Azure = &cp
	}
	if wh := c.Notifications.Webhook; wh != nil {
		cp := *wh
		cp.Headers = make(map[string]string, len(wh.Headers))
		for k, v := range wh.Headers {
			cp.Headers[k] = mask(v)
		}
		out.Notifications.Webhook = &cp
	}
	return &out
}
