package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorageProvider archives artifacts in a directory on the local file system
type LocalStorageProvider struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStorageProvider creates a new LocalStorageProvider instance. The
// archive prefix becomes a subdirectory of the base path.
func NewLocalStorageProvider(config *LocalConfig, prefix string) (*LocalStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}
	if config.BasePath == "" {
		return nil, NewValidationError("base path is required for local storage", nil)
	}

	permissions := config.Permissions
	if permissions == 0 {
		permissions = 0755
	}

	provider := &LocalStorageProvider{
		basePath:    filepath.Join(config.BasePath, filepath.FromSlash(normalizePrefix(prefix))),
		permissions: permissions,
	}

	if err := os.MkdirAll(provider.basePath, provider.permissions); err != nil {
		return nil, NewStorageError("failed to create base directory", err).WithContext("path", provider.basePath)
	}

	return provider, nil
}

// Store writes an artifact atomically: a temp file in the same directory is renamed into place
func (lsp *LocalStorageProvider) Store(ctx context.Context, name string, data []byte, contentType string) error {
	path, err := lsp.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("archive store cancelled", err)
	}

	tmp, err := os.CreateTemp(lsp.basePath, ".artifact-*")
	if err != nil {
		return NewStorageError("failed to create temporary file", err).WithContext("path", lsp.basePath)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return NewStorageError("failed to write artifact", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return NewStorageError("failed to write artifact", err).WithContext("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return NewStorageError("failed to move artifact into place", err).WithContext("path", path)
	}
	return nil
}

// Retrieve reads an artifact
func (lsp *LocalStorageProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	path, err := lsp.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewNotFoundError("artifact not found", err).WithContext("path", path)
	}
	if err != nil {
		return nil, NewStorageError("failed to read artifact", err).WithContext("path", path)
	}
	return data, nil
}

// Delete removes an artifact. A missing file is not an error so retention can be retried.
func (lsp *LocalStorageProvider) Delete(ctx context.Context, name string) error {
	path, err := lsp.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewStorageError("failed to delete artifact", err).WithContext("path", path)
	}
	return nil
}

// HealthCheck verifies that the directory is writable
func (lsp *LocalStorageProvider) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(lsp.basePath)
	if err != nil {
		return NewStorageError("local archive health check failed: base path not accessible", err)
	}
	if !info.IsDir() {
		return NewStorageError("local archive health check failed: base path is not a directory", nil)
	}

	probe, err := os.CreateTemp(lsp.basePath, ".health-*")
	if err != nil {
		return NewPermissionError("local archive health check failed: base path not writable", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// Type returns StorageProviderLocal
func (lsp *LocalStorageProvider) Type() StorageProviderType {
	return StorageProviderLocal
}

// BasePath returns the directory artifacts are written to
func (lsp *LocalStorageProvider) BasePath() string {
	return lsp.basePath
}

func (lsp *LocalStorageProvider) path(name string) (string, error) {
	key, err := objectKey("", name)
	if err != nil {
		return "", err
	}
	return filepath.Join(lsp.basePath, key), nil
}
