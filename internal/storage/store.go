// Package storage provides the blob store product photos are written to.
//
// Keys are slash-separated relative paths ("products/1700000000000-123456789.png").
// The store knows nothing about products; ordering guarantees between blob and
// database mutations belong to the caller.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrNotExist is returned when a key has no blob
	ErrNotExist = errors.New("blob does not exist")
	// ErrInvalidKey is returned for keys that escape the store root
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store puts, reads and deletes blobs by key
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// FileSystem exposes the store for static serving
	FileSystem() http.FileSystem
}

// LocalStore keeps blobs on an afero filesystem
type LocalStore struct {
	fs afero.Fs
}

// NewLocalStore roots a store at dir on the host filesystem
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewStore wraps an arbitrary afero filesystem
func NewStore(fsys afero.Fs) *LocalStore {
	return &LocalStore{fs: fsys}
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// Put writes r under key. The blob is staged under a temporary name and
// renamed into place, so a failed write never leaves a partial blob at key.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp := path.Join(path.Dir(name), ".tmp-"+uuid.NewString())
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to write blob: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to close blob: %w", err)
	}

	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to commit blob: %w", err)
	}

	return nil
}

// Open returns a reader for the blob at key
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob at key; a missing blob yields ErrNotExist
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Exists reports whether key has a blob
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	name, err := cleanKey(key)
	if err != nil {
		return false, err
	}

	ok, err := afero.Exists(s.fs, name)
	if err != nil {
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return ok, nil
}

func (s *LocalStore) FileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs)
}
