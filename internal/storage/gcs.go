package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes photos to a Google Cloud Storage bucket. Objects are expected
// to be publicly readable through bucket-level IAM.
type GCSStore struct {
	bucket        string
	publicBaseURL string
	newWriter     func(ctx context.Context, key, contentType string) io.WriteCloser
}

// NewGCSStore creates a client using credentialsFile, or application default
// credentials when it is empty.
func NewGCSStore(ctx context.Context, bucket, publicBaseURL, credentialsFile string) (*GCSStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs photo store: bucket is empty")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs photo store: create client: %w", err)
	}

	handle := client.Bucket(bucket)
	return &GCSStore{
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		newWriter: func(ctx context.Context, key, contentType string) io.WriteCloser {
			w := handle.Object(key).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
	}, nil
}

func (s *GCSStore) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	key := objectPrefix + ObjectName(originalName)

	w := s.newWriter(ctx, key, http.DetectContentType(data))
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs photo store: write %s: %w", key, err)
	}
	// The object is committed on Close.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs photo store: commit %s: %w", key, err)
	}

	return s.objectURL(key), nil
}

func (s *GCSStore) objectURL(key string) string {
	base := strings.TrimRight(s.publicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return fmt.Sprintf("%s/%s/%s", base, s.bucket, key)
}

func (s *GCSStore) Backend() string { return "gcs" }
