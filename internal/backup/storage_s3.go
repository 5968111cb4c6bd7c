package backup

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3StorageProvider archives artifacts in an Amazon S3 (or S3-compatible) bucket
type S3StorageProvider struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3StorageProvider creates a new S3StorageProvider instance
func NewS3StorageProvider(config *S3Config, prefix string) (*S3StorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if config.Bucket == "" || config.Region == "" {
		return nil, NewValidationError("S3 bucket and region are required", nil)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return newS3StorageProvider(s3.New(sess), config.Bucket, prefix), nil
}

func newS3StorageProvider(client s3iface.S3API, bucket, prefix string) *S3StorageProvider {
	return &S3StorageProvider{client: client, bucket: bucket, prefix: normalizePrefix(prefix)}
}

// Store uploads an artifact
func (s3p *S3StorageProvider) Store(ctx context.Context, name string, data []byte, contentType string) error {
	key, err := objectKey(s3p.prefix, name)
	if err != nil {
		return err
	}

	_, err = s3p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return NewStorageError("failed to upload artifact to S3", err).WithContext("key", key)
	}
	return nil
}

// Retrieve downloads an artifact
func (s3p *S3StorageProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	key, err := objectKey(s3p.prefix, name)
	if err != nil {
		return nil, err
	}

	result, err := s3p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, NewStorageError("failed to download artifact from S3", err).WithContext("key", key)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, NewStorageError("failed to read artifact from S3", err).WithContext("key", key)
	}
	return data, nil
}

// Delete removes an artifact. S3 treats deleting a missing key as success.
func (s3p *S3StorageProvider) Delete(ctx context.Context, name string) error {
	key, err := objectKey(s3p.prefix, name)
	if err != nil {
		return err
	}

	_, err = s3p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return NewStorageError("failed to delete artifact from S3", err).WithContext("key", key)
	}
	return nil
}

// HealthCheck verifies that the bucket is reachable and listable
func (s3p *S3StorageProvider) HealthCheck(ctx context.Context) error {
	_, err := s3p.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s3p.bucket),
	})
	if err != nil {
		return NewStorageError("S3 archive health check failed: bucket not accessible", err)
	}

	_, err = s3p.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s3p.bucket),
		Prefix:  aws.String(s3p.prefix),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return NewStorageError("S3 archive health check failed: cannot list objects", err)
	}
	return nil
}

// Type returns StorageProviderS3
func (s3p *S3StorageProvider) Type() StorageProviderType {
	return StorageProviderS3
}
