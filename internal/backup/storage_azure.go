package backup

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorageProvider archives artifacts in an Azure Blob Storage container
type AzureStorageProvider struct {
	containerURL  azblob.ContainerURL
	containerName string
	prefix        string
}

// NewAzureStorageProvider creates a new AzureStorageProvider instance
func NewAzureStorageProvider(config *AzureConfig, prefix string) (*AzureStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if config.AccountName == "" || config.AccountKey == "" || config.ContainerName == "" {
		return nil, NewValidationError("Azure account name, account key and container name are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureStorageProvider{
		containerURL:  azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		containerName: config.ContainerName,
		prefix:        normalizePrefix(prefix),
	}, nil
}

// Store uploads an artifact as a block blob
func (azp *AzureStorageProvider) Store(ctx context.Context, name string, data []byte, contentType string) error {
	blobName, err := objectKey(azp.prefix, name)
	if err != nil {
		return err
	}

	blobURL := azp.containerURL.NewBlockBlobURL(blobName)
	_, err = azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: contentType,
		},
	})
	if err != nil {
		return NewStorageError("failed to upload artifact to Azure", err).WithContext("blob", blobName)
	}
	return nil
}

// Retrieve downloads an artifact
func (azp *AzureStorageProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	blobName, err := objectKey(azp.prefix, name)
	if err != nil {
		return nil, err
	}

	blobURL := azp.containerURL.NewBlockBlobURL(blobName)
	response, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, NewStorageError("failed to download artifact from Azure", err).WithContext("blob", blobName)
	}

	body := response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20})
	defer body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, NewStorageError("failed to read artifact from Azure", err).WithContext("blob", blobName)
	}
	return buf.Bytes(), nil
}

// Delete removes an artifact. A blob that is already gone is not an error.
func (azp *AzureStorageProvider) Delete(ctx context.Context, name string) error {
	blobName, err := objectKey(azp.prefix, name)
	if err != nil {
		return err
	}

	blobURL := azp.containerURL.NewBlockBlobURL(blobName)
	_, err = blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil
		}
		return NewStorageError("failed to delete artifact from Azure", err).WithContext("blob", blobName)
	}
	return nil
}

// HealthCheck verifies that the container is reachable and listable
func (azp *AzureStorageProvider) HealthCheck(ctx context.Context) error {
	if _, err := azp.containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{}); err != nil {
		return NewStorageError("Azure archive health check failed: container not accessible", err)
	}

	_, err := azp.containerURL.ListBlobsFlatSegment(ctx, azblob.Marker{}, azblob.ListBlobsSegmentOptions{
		Prefix:     azp.prefix,
		MaxResults: 1,
	})
	if err != nil {
		return NewStorageError("Azure archive health check failed: cannot list blobs", err)
	}
	return nil
}

// Type returns StorageProviderAzure
func (azp *AzureStorageProvider) Type() StorageProviderType {
	return StorageProviderAzure
}
