package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mnybridge/mnybridge/internal/errors"
)

// LocalStore keeps images under one base directory. Used in tests and for
// workflows that never leave the machine.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates the base directory if needed and returns a store
// over it.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.NewStorageError(errors.CodePutFailed, "create storage directory", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Fetch returns the image stored under key.
func (l *LocalStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(l.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.NewStorageError(errors.CodeFetchFailed, "read image", err)
	}
	return raw, nil
}

// Put stores the image under key.
func (l *LocalStore) Put(ctx context.Context, key string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := l.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "create image directory", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "write image", err)
	}
	return nil
}

// Exists reports whether key holds an image.
func (l *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(l.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewStorageError(errors.CodeFetchFailed, "stat image", err)
	}
	return true, nil
}

// List returns every key under the given prefix.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := filepath.Walk(l.fullPath(prefix), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(l.basePath, path)
			if err != nil {
				return err
			}
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeFetchFailed, "list images", err)
	}
	return keys, nil
}

// Delete removes the image under key; missing keys are ignored.
func (l *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(l.fullPath(key)); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(errors.CodePutFailed, "delete image", err)
	}
	return nil
}

func (l *LocalStore) fullPath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}
