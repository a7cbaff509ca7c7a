// Package storage stores uploaded files such as product images on the local
// filesystem or on S3-compatible object storage (AWS S3, MinIO, R2).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Disk is the blob store behind product and plan images.
type Disk interface {
	// Put writes r to key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	// URL returns the public URL of key.
	URL(key string) string
}

// Config selects and configures the disk returned by Open.
type Config struct {
	Driver string // "local" or "s3"

	LocalRoot string
	LocalURL  string

	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string // empty for AWS
	S3URL      string
}

// ErrInvalidKey is returned for keys that escape the disk root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Open builds the configured disk.
func Open(ctx context.Context, cfg Config) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalRoot, cfg.LocalURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q (supported: local, s3)", cfg.Driver)
	}
}

// CleanKey normalises key to a slash-separated relative path.
func CleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", ErrInvalidKey
	}
	return k, nil
}
