package backup

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// StorageProviderFactory creates archive providers based on configuration
type StorageProviderFactory struct{}

// NewStorageProviderFactory creates a new storage provider factory
func NewStorageProviderFactory() *StorageProviderFactory {
	return &StorageProviderFactory{}
}

// CreateArchiveProvider creates the provider named by config. A disabled
// archive yields a nil provider and no error.
func (spf *StorageProviderFactory) CreateArchiveProvider(ctx context.Context, config ArchiveConfig) (ArchiveProvider, error) {
	if !config.Enabled {
		return nil, nil
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid archive configuration", err)
	}

	switch config.Provider {
	case StorageProviderLocal:
		return NewLocalStorageProvider(config.Local, config.Prefix)
	case StorageProviderS3:
		return NewS3StorageProvider(config.S3, config.Prefix)
	case StorageProviderAzure:
		return NewAzureStorageProvider(config.Azure, config.Prefix)
	case StorageProviderGCS:
		return NewGCSStorageProvider(ctx, config.GCS, config.Prefix)
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}

// GetSupportedProviders returns a list of supported storage provider types
func (spf *StorageProviderFactory) GetSupportedProviders() []StorageProviderType {
	return []StorageProviderType{
		StorageProviderLocal,
		StorageProviderS3,
		StorageProviderAzure,
		StorageProviderGCS,
	}
}

// normalizePrefix trims slashes and ends a non-empty prefix with exactly one
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// objectKey joins prefix and an artifact file name, refusing names that
// could escape the prefix.
func objectKey(prefix, name string) (string, error) {
	if name == "" {
		return "", NewValidationError("artifact name cannot be empty", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || path.Clean(name) != name {
		return "", NewValidationError("artifact name must be a plain file name", nil).WithContext("name", name)
	}
	return prefix + name, nil
}
