package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are not flat file names.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage keeps generated files such as segment exports.
// Keys are flat names; implementations reject keys containing path separators.
type Storage interface {
	// Save writes the object under key, replacing any previous content.
	Save(ctx context.Context, key string, r io.Reader) error

	// Open returns a reader for the object. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether the object exists and its size.
	Exists(ctx context.Context, key string) (exists bool, size int64, err error)

	Delete(ctx context.Context, key string) error

	// DownloadURL is the public URL serving the object.
	DownloadURL(key string) string
}
