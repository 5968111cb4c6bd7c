package backup

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorageProvider archives artifacts in a Google Cloud Storage bucket
type GCSStorageProvider struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSStorageProvider creates a new GCSStorageProvider instance. Extra
// client options are appended after the credentials option.
func NewGCSStorageProvider(ctx context.Context, config *GCSConfig, prefix string, opts ...option.ClientOption) (*GCSStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("GCS bucket name is required", nil)
	}

	var clientOpts []option.ClientOption
	if config.CredentialsPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(config.CredentialsPath))
	}
	clientOpts = append(clientOpts, opts...)

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStorageProvider{
		client:     client,
		bucketName: config.Bucket,
		prefix:     normalizePrefix(prefix),
	}, nil
}

// Store uploads an artifact
func (gcsp *GCSStorageProvider) Store(ctx context.Context, name string, data []byte, contentType string) error {
	objectName, err := objectKey(gcsp.prefix, name)
	if err != nil {
		return err
	}

	writer := gcsp.client.Bucket(gcsp.bucketName).Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return NewStorageError("failed to write artifact to GCS", err).WithContext("object", objectName)
	}
	if err := writer.Close(); err != nil {
		return NewStorageError("failed to upload artifact to GCS", err).WithContext("object", objectName)
	}
	return nil
}

// Retrieve downloads an artifact
func (gcsp *GCSStorageProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	objectName, err := objectKey(gcsp.prefix, name)
	if err != nil {
		return nil, err
	}

	reader, err := gcsp.client.Bucket(gcsp.bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, NewNotFoundError("artifact not found in GCS", err).WithContext("object", objectName)
		}
		return nil, NewStorageError("failed to open artifact in GCS", err).WithContext("object", objectName)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewStorageError("failed to read artifact from GCS", err).WithContext("object", objectName)
	}
	return data, nil
}

// Delete removes an artifact. An object that is already gone is not an error.
func (gcsp *GCSStorageProvider) Delete(ctx context.Context, name string) error {
	objectName, err := objectKey(gcsp.prefix, name)
	if err != nil {
		return err
	}

	err = gcsp.client.Bucket(gcsp.bucketName).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return NewStorageError("failed to delete artifact from GCS", err).WithContext("object", objectName)
	}
	return nil
}

// HealthCheck verifies that the bucket is reachable and listable
func (gcsp *GCSStorageProvider) HealthCheck(ctx context.Context) error {
	bucket := gcsp.client.Bucket(gcsp.bucketName)
	if _, err := bucket.Attrs(ctx); err != nil {
		return NewStorageError("GCS archive health check failed: bucket not accessible", err)
	}

	it := bucket.Objects(ctx, &storage.Query{Prefix: gcsp.prefix})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return NewStorageError("GCS archive health check failed: cannot list objects", err)
	}
	return nil
}

// Type returns StorageProviderGCS
func (gcsp *GCSStorageProvider) Type() StorageProviderType {
	return StorageProviderGCS
}

// Close releases the underlying client
func (gcsp *GCSStorageProvider) Close() error {
	return gcsp.client.Close()
}
