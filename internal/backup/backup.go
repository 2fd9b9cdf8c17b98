// Package backup keeps snappy-compressed copies of container images, taken
// before every overwrite so a bad write never costs the previous state.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"

	"github.com/mnybridge/mnybridge/internal/errors"
)

// Store writes and restores backups under one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewStorageError(errors.CodePutFailed, "create backup directory", err)
	}
	return &Store{dir: dir}, nil
}

// Write compresses raw and stores it under a timestamped name derived from
// the source file. Returns the backup path.
func (s *Store) Write(source string, raw []byte) (string, error) {
	stamp := time.Now().UTC().Format("20060102T150405")
	name := fmt.Sprintf("%s.%s.snappy", filepath.Base(source), stamp)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, snappy.Encode(nil, raw), 0o644); err != nil {
		return "", errors.NewStorageError(errors.CodePutFailed, "write backup", err)
	}
	return path, nil
}

// Restore reads a backup back into raw container bytes.
func (s *Store) Restore(path string) ([]byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeFetchFailed, "read backup", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeFetchFailed, "decompress backup", err)
	}
	return raw, nil
}

// List returns the backup paths for one source file, oldest first.
func (s *Store) List(source string) ([]string, error) {
	pattern := filepath.Join(s.dir, filepath.Base(source)+".*.snappy")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeFetchFailed, "list backups", err)
	}
	return paths, nil
}
