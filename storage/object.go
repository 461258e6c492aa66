package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/config"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const jsonContentType = "application/json"

// Compile-time check to ensure ObjectStorage implements Storage interface
var _ interfaces.Storage = (*ObjectStorage)(nil)

// ObjectStorageOptions configures the bucket backend
type ObjectStorageOptions struct {
	Endpoint  string // host[:port], no scheme
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// objectClient is the subset of *minio.Client used to upload and remove artifacts
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ObjectStorage uploads artifacts to an S3-compatible bucket.
// Uploads are attempted once.
type ObjectStorage struct {
	client objectClient
	bucket string
	scheme string
}

// NewObjectStorage connects to the endpoint and checks that the bucket exists
func NewObjectStorage(ctx context.Context, opts ObjectStorageOptions) (*ObjectStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create object storage client", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, apperrors.NewStorageError(opts.Bucket, fmt.Errorf("failed to check bucket: %w", err))
	}
	if !exists {
		return nil, apperrors.NewStorageError(opts.Bucket, fmt.Errorf("bucket does not exist"))
	}

	return newObjectStorage(client, opts.Bucket, opts.Endpoint), nil
}

func newObjectStorage(client objectClient, bucket, endpoint string) *ObjectStorage {
	return &ObjectStorage{client: client, bucket: bucket, scheme: schemeFor(endpoint)}
}

// schemeFor returns gs for the Cloud Storage endpoint and s3 for anything else
func schemeFor(endpoint string) string {
	host := strings.ToLower(endpoint)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == config.DefaultStorageEndpoint {
		return "gs"
	}
	return "s3"
}

// Store uploads data as bucket/name and returns its gs:// or s3:// location
func (s *ObjectStorage) Store(ctx context.Context, data []byte, name string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: jsonContentType})
	if err != nil {
		return "", apperrors.NewStorageError(name, err)
	}

	location := fmt.Sprintf("%s://%s/%s", s.scheme, s.bucket, name)
	logging.Info("Uploaded artifact", "location", location, "size", info.Size, "etag", info.ETag)
	return location, nil
}

// Delete removes bucket/name. S3 reports success for a missing key.
func (s *ObjectStorage) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.NewStorageError(name, err)
	}
	logging.Info("Removed artifact", "location", fmt.Sprintf("%s://%s/%s", s.scheme, s.bucket, name))
	return nil
}
