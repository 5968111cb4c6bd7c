package backup

import (
	"errors"
	"testing"
	"time"

	"risk-register-backup/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 3, config.MaxBackups)
	assert.Equal(t, snapshot.SystemIdentifier, config.SystemIdentifier)
	assert.Equal(t, snapshot.OriginTag, config.OriginTag)
	assert.Equal(t, snapshot.FormatVersion, config.FormatVersion)
	assert.Equal(t, []string{snapshot.FormatVersion}, config.AcceptedVersions)
	assert.Equal(t, snapshot.DefaultLogGroupLimit, config.LogGroupLimit)
	assert.Equal(t, snapshot.DefaultRecordTimeout, config.RecordTimeout)
	assert.Equal(t, CompressionTypeNone, config.Compression.Algorithm)
	assert.False(t, config.Archive.Enabled)
	assert.Equal(t, 24*time.Hour, config.Schedule.Interval)
	assert.NoError(t, config.Validate())
}

func TestConfig_SetDefaults_KeepsExplicitValues(t *testing.T) {
	config := Config{
		MaxBackups:  10,
		Compression: CompressionConfig{Algorithm: CompressionTypeZstd},
		Archive:     ArchiveConfig{Enabled: true},
	}
	config.SetDefaults()

	assert.Equal(t, 10, config.MaxBackups)
	assert.Equal(t, 3, config.Compression.Level)
	assert.Equal(t, StorageProviderLocal, config.Archive.Provider)
	require.NotNil(t, config.Archive.Local)
	assert.Equal(t, "./backups", config.Archive.Local.BasePath)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"retention bound below one", func(c *Config) { c.MaxBackups = -2 }, "max_backups"},
		{"negative log group limit", func(c *Config) { c.LogGroupLimit = -1 }, "log_group_limit"},
		{"negative record timeout", func(c *Config) { c.RecordTimeout = -time.Second }, "record_timeout"},
		{"identifier without origin tag", func(c *Config) { c.SystemIdentifier = "other-system" }, "system_identifier"},
		{"format version not accepted", func(c *Config) { c.AcceptedVersions = []string{"2.0"} }, "accepted_versions"},
		{"unknown compression", func(c *Config) { c.Compression.Algorithm = "brotli" }, "compression.algorithm"},
		{"gzip level out of range", func(c *Config) { c.Compression = CompressionConfig{Algorithm: CompressionTypeGzip, Level: 11} }, "compression.level"},
		{"s3 without bucket", func(c *Config) {
			c.Archive = ArchiveConfig{Enabled: true, Provider: StorageProviderS3, S3: &S3Config{Region: "us-east-1"}}
		}, "archive.s3.bucket"},
		{"gcs without bucket", func(c *Config) {
			c.Archive = ArchiveConfig{Enabled: true, Provider: StorageProviderGCS}
		}, "archive.gcs.bucket"},
		{"schedule too frequent", func(c *Config) {
			c.Schedule = ScheduleConfig{Enabled: true, Interval: 30 * time.Second}
		}, "schedule.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			require.Error(t, err)

			var validationErrs ValidationErrors
			require.True(t, errors.As(err, &validationErrs))
			var fields []string
			for _, e := range validationErrs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestConfig_DisabledArchiveIsNotValidated(t *testing.T) {
	config := DefaultConfig()
	config.Archive = ArchiveConfig{Provider: StorageProviderAzure}
	assert.NoError(t, config.Validate())
}

func TestConfig_RestoreConfig(t *testing.T) {
	config := DefaultConfig()
	config.AcceptedVersions = []string{"3.0", "2.1"}
	config.RecordTimeout = 3 * time.Second

	restore := config.RestoreConfig()
	assert.Equal(t, snapshot.OriginTag, restore.OriginTag)
	assert.Equal(t, []string{"3.0", "2.1"}, restore.AcceptedVersions)
	assert.Equal(t, 3*time.Second, restore.RecordTimeout)

	restore.AcceptedVersions[0] = "9.9"
	assert.Equal(t, "3.0", config.AcceptedVersions[0], "restore config owns its slice")
}
