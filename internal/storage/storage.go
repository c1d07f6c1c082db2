// Package storage defines the interface for stored upload files.
// The local filesystem implementation is the default; the S3 implementation
// works with any S3-compatible provider (MinIO, AWS S3) and is selected by
// configuration. Files are keyed by generated flat names, no subdirectories.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Open and Delete when no object has the given key.
var ErrNotExist = errors.New("object does not exist")

// Storage is the interface for saving and retrieving uploaded and enhanced files.
type Storage interface {
	// Save streams data to the store under the given key. size may be -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns a reader for the object. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
}
