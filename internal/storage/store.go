// Package storage persists uploaded listing photos and returns the path clients
// use to fetch them.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"marketplace/internal/config"

	"github.com/google/uuid"
)

// objectPrefix is the key prefix used by the object-store backends.
const objectPrefix = "photos/"

const maxBaseNameLen = 100

// Store saves photo bytes and returns the stored path or URL.
type Store interface {
	Save(ctx context.Context, data []byte, originalName string) (string, error)
}

// BackendOf returns the backend label of s for logs and metrics.
func BackendOf(s Store) string {
	if b, ok := s.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return "unknown"
}

// New builds the Store selected by cfg.PhotoStorage.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.PhotoStorage {
	case "", config.PhotoStorageLocal:
		return NewLocalStore(cfg.PhotoUploadDir, cfg.PhotoPublicPrefix)
	case config.PhotoStorageS3:
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	case config.PhotoStorageGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPublicBaseURL, cfg.FirebaseCredentialsFile)
	default:
		return nil, fmt.Errorf("unknown photo storage backend %q", cfg.PhotoStorage)
	}
}

// ObjectName derives a unique, filesystem-safe name from an uploaded file's
// name: "<uuid>_<sanitised base name>".
func ObjectName(originalName string) string {
	return uuid.NewString() + "_" + sanitizeBaseName(originalName)
}

// sanitizeBaseName keeps letters, combining marks and digits in any script
// plus '.', '-' and '_'. Anything else becomes '_'. Long names keep their last
// maxBaseNameLen runes so the extension survives.
func sanitizeBaseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))

	runes := make([]rune, 0, len(base))
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			runes = append(runes, r)
		default:
			runes = append(runes, '_')
		}
	}

	if len(runes) > maxBaseNameLen {
		runes = runes[len(runes)-maxBaseNameLen:]
	}
	clean := strings.TrimLeft(string(runes), ".")
	if clean == "" || clean == "_" {
		return "photo"
	}
	return clean
}
