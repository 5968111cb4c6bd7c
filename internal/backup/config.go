package backup

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"risk-register-backup/internal/snapshot"
)

// DefaultMaxBackups is how many completed backups retention keeps
const DefaultMaxBackups = 3

// Config represents the complete backup engine configuration
type Config struct {
	MaxBackups       int               `mapstructure:"max_backups" yaml:"max_backups"`
	SystemIdentifier string            `mapstructure:"system_identifier" yaml:"system_identifier"`
	OriginTag        string            `mapstructure:"origin_tag" yaml:"origin_tag"`
	FormatVersion    string            `mapstructure:"format_version" yaml:"format_version"`
	AcceptedVersions []string          `mapstructure:"accepted_versions" yaml:"accepted_versions"`
	LogGroupLimit    int               `mapstructure:"log_group_limit" yaml:"log_group_limit"`
	RecordTimeout    time.Duration     `mapstructure:"record_timeout" yaml:"record_timeout"`
	Compression      CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Archive          ArchiveConfig     `mapstructure:"archive" yaml:"archive"`
	Schedule         ScheduleConfig    `mapstructure:"schedule" yaml:"schedule"`
}

// CompressionConfig defines artifact encoding
type CompressionConfig struct {
	Algorithm CompressionType `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int             `mapstructure:"level" yaml:"level"`
}

// ArchiveConfig configures the optional offsite copy of completed artifacts
type ArchiveConfig struct {
	Enabled  bool                `mapstructure:"enabled" yaml:"enabled"`
	Provider StorageProviderType `mapstructure:"provider" yaml:"provider"`
	Prefix   string              `mapstructure:"prefix" yaml:"prefix"`
	Local    *LocalConfig        `mapstructure:"local" yaml:"local,omitempty"`
	S3       *S3Config           `mapstructure:"s3" yaml:"s3,omitempty"`
	Azure    *AzureConfig        `mapstructure:"azure" yaml:"azure,omitempty"`
	GCS      *GCSConfig          `mapstructure:"gcs" yaml:"gcs,omitempty"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

// S3Config for Amazon S3 storage
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
	ProjectID       string `mapstructure:"project_id" yaml:"project_id"`
}

// ScheduleConfig drives automatic exports in serve mode
type ScheduleConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for the backup configuration
func (c *Config) SetDefaults() {
	if c.MaxBackups == 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if c.SystemIdentifier == "" {
		c.SystemIdentifier = snapshot.SystemIdentifier
	}
	if c.OriginTag == "" {
		c.OriginTag = snapshot.OriginTag
	}
	if c.FormatVersion == "" {
		c.FormatVersion = snapshot.FormatVersion
	}
	if len(c.AcceptedVersions) == 0 {
		c.AcceptedVersions = []string{c.FormatVersion}
	}
	if c.LogGroupLimit == 0 {
		c.LogGroupLimit = snapshot.DefaultLogGroupLimit
	}
	if c.RecordTimeout == 0 {
		c.RecordTimeout = snapshot.DefaultRecordTimeout
	}
	c.Compression.SetDefaults()
	c.Archive.SetDefaults()
	c.Schedule.SetDefaults()
}

// Validate validates the backup configuration
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.MaxBackups < 1 {
		errors.Add("max_backups", "at least one backup must be retained", c.MaxBackups)
	}
	if c.LogGroupLimit < 0 {
		errors.Add("log_group_limit", "log group limit cannot be negative", c.LogGroupLimit)
	}
	if c.RecordTimeout < 0 {
		errors.Add("record_timeout", "record timeout cannot be negative", c.RecordTimeout)
	}
	if c.OriginTag != "" && c.SystemIdentifier != "" && !strings.Contains(c.SystemIdentifier, c.OriginTag) {
		errors.Add("system_identifier", "system identifier must contain the origin tag, or exports could not be restored", c.SystemIdentifier)
	}
	if c.FormatVersion != "" && len(c.AcceptedVersions) > 0 && !slices.Contains(c.AcceptedVersions, c.FormatVersion) {
		errors.Add("accepted_versions", "accepted versions must include the format version written on export", c.AcceptedVersions)
	}

	errors.Merge("compression", c.Compression.Validate())
	errors.Merge("archive", c.Archive.Validate())
	errors.Merge("schedule", c.Schedule.Validate())

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// RestoreConfig maps the guard and apply settings onto the snapshot restorer
func (c *Config) RestoreConfig() snapshot.RestoreConfig {
	return snapshot.RestoreConfig{
		OriginTag:        c.OriginTag,
		AcceptedVersions: append([]string(nil), c.AcceptedVersions...),
		RecordTimeout:    c.RecordTimeout,
	}
}

// SetDefaults sets default values for compression configuration
func (cc *CompressionConfig) SetDefaults() {
	if cc.Algorithm == "" {
		cc.Algorithm = CompressionTypeNone
	}
	if c, ok := codecs[cc.Algorithm]; ok && cc.Level == 0 {
		cc.Level = c.def
	}
}

// Validate validates the CompressionConfig
func (cc *CompressionConfig) Validate() error {
	if cc.Algorithm == CompressionTypeNone || cc.Algorithm == "" {
		return nil
	}

	c, ok := codecs[cc.Algorithm]
	if !ok {
		return ValidationErrors{{Field: "compression.algorithm", Message: "compression algorithm must be none, gzip, lz4 or zstd", Value: cc.Algorithm}}
	}
	if cc.Level < c.minLevel || cc.Level > c.maxLevel {
		msg := fmt.Sprintf("%s compression level must be between %d and %d", cc.Algorithm, c.minLevel, c.maxLevel)
		return ValidationErrors{{Field: "compression.level", Message: msg, Value: cc.Level}}
	}
	return nil
}

// SetDefaults sets default values for the archive configuration
func (ac *ArchiveConfig) SetDefaults() {
	if ac.Provider == "" {
		ac.Provider = StorageProviderLocal
	}
	if !ac.Enabled {
		return
	}

	switch ac.Provider {
	case StorageProviderLocal:
		if ac.Local == nil {
			ac.Local = &LocalConfig{}
		}
		ac.Local.SetDefaults()
	case StorageProviderS3:
		if ac.S3 == nil {
			ac.S3 = &S3Config{}
		}
		ac.S3.SetDefaults()
	case StorageProviderGCS:
		if ac.GCS == nil {
			ac.GCS = &GCSConfig{}
		}
		ac.GCS.SetDefaults()
	}
}

// Validate validates the archive configuration. A disabled archive is always valid.
func (ac *ArchiveConfig) Validate() error {
	if !ac.Enabled {
		return nil
	}

	var errors ValidationErrors
	switch ac.Provider {
	case StorageProviderLocal:
		if ac.Local == nil || ac.Local.BasePath == "" {
			errors.Add("archive.local.base_path", "base path is required for local storage", nil)
		}
	case StorageProviderS3:
		if ac.S3 == nil {
			errors.Add("archive.s3", "S3 storage configuration is required", nil)
			break
		}
		if ac.S3.Bucket == "" {
			errors.Add("archive.s3.bucket", "S3 bucket name is required", ac.S3.Bucket)
		}
		if ac.S3.Region == "" {
			errors.Add("archive.s3.region", "S3 region is required", ac.S3.Region)
		}
	case StorageProviderAzure:
		if ac.Azure == nil {
			errors.Add("archive.azure", "Azure storage configuration is required", nil)
			break
		}
		if ac.Azure.AccountName == "" {
			errors.Add("archive.azure.account_name", "Azure account name is required", ac.Azure.AccountName)
		}
		if ac.Azure.AccountKey == "" {
			errors.Add("archive.azure.account_key", "Azure account key is required", nil)
		}
		if ac.Azure.ContainerName == "" {
			errors.Add("archive.azure.container_name", "Azure container name is required", ac.Azure.ContainerName)
		}
	case StorageProviderGCS:
		if ac.GCS == nil || ac.GCS.Bucket == "" {
			errors.Add("archive.gcs.bucket", "GCS bucket name is required", nil)
		}
	default:
		errors.Add("archive.provider", "archive provider must be local, s3, azure or gcs", ac.Provider)
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// SetDefaults sets default values for local storage configuration
func (lc *LocalConfig) SetDefaults() {
	if lc.BasePath == "" {
		lc.BasePath = "./backups"
	}
	if lc.Permissions == 0 {
		lc.Permissions = 0755
	}
}

// SetDefaults sets default values for S3 storage configuration
func (s3c *S3Config) SetDefaults() {
	if s3c.Region == "" {
		s3c.Region = "us-east-1"
	}
}

// SetDefaults sets default values for GCS storage configuration
func (gc *GCSConfig) SetDefaults() {
	if gc.CredentialsPath == "" {
		gc.CredentialsPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

// SetDefaults sets default values for the schedule
func (sc *ScheduleConfig) SetDefaults() {
	if sc.Interval == 0 {
		sc.Interval = 24 * time.Hour
	}
}

// Validate validates the schedule
func (sc *ScheduleConfig) Validate() error {
	if sc.Enabled && sc.Interval < time.Minute {
		return ValidationErrors{{Field: "schedule.interval", Message: "schedule interval must be at least one minute", Value: sc.Interval}}
	}
	return nil
}
