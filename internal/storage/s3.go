package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"marketplace/internal/middleware"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options configures an S3-compatible photo store.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Store writes photos to an S3-compatible bucket (MinIO, AWS S3).
type S3Store struct {
	client  objectPutter
	bucket  string
	baseURL string
}

// NewS3Store connects to the endpoint and makes sure the bucket exists.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 photo store: create client for %s: %w", opts.Endpoint, err)
	}

	if err := ensureBucket(ctx, client, opts.Bucket); err != nil {
		return nil, err
	}

	middleware.Logger.Info("S3 photo store ready",
		slog.String("endpoint", opts.Endpoint),
		slog.String("bucket", opts.Bucket),
	)

	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: client.EndpointURL().String(),
	}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err == nil {
		return nil
	}
	exists, existsErr := client.BucketExists(ctx, bucket)
	if existsErr == nil && exists {
		return nil
	}
	return fmt.Errorf("s3 photo store: make/verify bucket %s: make: %v, exists: %v", bucket, err, existsErr)
}

func (s *S3Store) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	key := objectPrefix + ObjectName(originalName)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  http.DetectContentType(data),
		UserMetadata: map[string]string{"original-filename": sanitizeBaseName(originalName)},
	})
	if err != nil {
		return "", fmt.Errorf("s3 photo store: put %s/%s: %w", s.bucket, key, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key), nil
}

func (s *S3Store) Backend() string { return "s3" }
