package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory. Unimplemented calls panic through the nil embedded interface.
type fakeS3 struct {
	s3iface.S3API

	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	headErr     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(input.Key)] = data
	f.contentType[aws.StringValue(input.Key)] = aws.StringValue(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.StringValue(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucketWithContext(ctx aws.Context, input *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2WithContext(ctx aws.Context, input *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{KeyCount: aws.Int64(int64(len(f.objects)))}, nil
}

func TestNewS3StorageProvider_RequiresBucketAndRegion(t *testing.T) {
	_, err := NewS3StorageProvider(nil, "")
	assert.Equal(t, BackupErrorTypeValidation, ErrorType(err))

	_, err = NewS3StorageProvider(&S3Config{Bucket: "backups"}, "")
	assert.Equal(t, BackupErrorTypeValidation, ErrorType(err))

	provider, err := NewS3StorageProvider(&S3Config{Bucket: "backups", Region: "me-south-1", Endpoint: "http://localhost:9000"}, "risk")
	require.NoError(t, err)
	assert.Equal(t, StorageProviderS3, provider.Type())
}

func TestS3StorageProvider_StoreRetrieveDelete(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	provider := newS3StorageProvider(client, "backups", "/risk-register/")

	name := "risk-register-backup-automatic-2024-03-01T08-00-00Z.json.gz"
	require.NoError(t, provider.Store(ctx, name, []byte{0x1f, 0x8b, 0x08}, "application/gzip"))

	key := "risk-register/" + name
	assert.Contains(t, client.objects, key)
	assert.Equal(t, "application/gzip", client.contentType[key])

	data, err := provider.Retrieve(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b, 0x08}, data)

	require.NoError(t, provider.Delete(ctx, name))
	assert.NotContains(t, client.objects, key)

	_, err = provider.Retrieve(ctx, name)
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeStorage, ErrorType(err))

	err = provider.Store(ctx, "../escape.json", nil, "application/json")
	assert.Equal(t, BackupErrorTypeValidation, ErrorType(err))
}

func TestS3StorageProvider_HealthCheck(t *testing.T) {
	client := newFakeS3()
	provider := newS3StorageProvider(client, "backups", "")
	assert.NoError(t, provider.HealthCheck(context.Background()))

	client.headErr = errors.New("403 Forbidden")
	err := provider.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeStorage, ErrorType(err))
	assert.Contains(t, err.Error(), "bucket not accessible")
}
