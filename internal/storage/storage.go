// Package storage moves whole database images between the local machine and
// a remote file store. Images are small enough (tens of megabytes) to travel
// as single byte slices; there is no streaming or multipart path.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports a key with no stored image behind it.
var ErrNotFound = errors.New("image not found")

// FileStore stores database images by key.
type FileStore interface {
	// Fetch returns the image stored under key, or ErrNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Put stores the image under key, replacing any previous version.
	Put(ctx context.Context, key string, raw []byte) error

	// Exists reports whether key holds an image.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the image under key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}
