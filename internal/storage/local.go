package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes photos to a directory served by the HTTP server under publicPrefix.
type LocalStore struct {
	root         string
	publicPrefix string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, publicPrefix string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("local photo store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("local photo store: create %s: %w", root, err)
	}
	if publicPrefix == "" {
		publicPrefix = "/photos"
	}
	return &LocalStore{
		root:         root,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
	}, nil
}

func (s *LocalStore) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := ObjectName(originalName)
	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("local photo store: create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("local photo store: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("local photo store: close %s: %w", name, err)
	}

	return path.Join(s.publicPrefix, name), nil
}

// Root is the directory photos are written to.
func (s *LocalStore) Root() string { return s.root }

// PublicPrefix is the URL prefix stored paths start with.
func (s *LocalStore) PublicPrefix() string { return s.publicPrefix }

func (s *LocalStore) Backend() string { return "local" }
