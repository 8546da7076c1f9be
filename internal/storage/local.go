package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend stores objects as plain files under a root directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend constructs a local filesystem backend rooted at root,
// creating the directory if needed.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalBackend{root: abs}, nil
}

// resolve maps a key to an absolute file path and re-checks containment.
// Syntactic path validation already happened at the HTTP boundary; this
// second check at resolution time catches absolute keys and anything that
// slipped past the first one.
func (l *LocalBackend) resolve(key string) (string, error) {
	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", ErrNotFound
	}
	joined := filepath.Join(l.root, filepath.FromSlash(key))
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, l.root+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return abs, nil
}

// Put writes the object to disk, creating missing intermediate directories.
// Overwrites are idempotent.
func (l *LocalBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write object file: %w", err)
	}
	return f.Close()
}

// Exists reports whether a regular file is stored under key.
func (l *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	p, err := l.resolve(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Get opens the object file for reading.
func (l *LocalBackend) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	p, err := l.resolve(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ObjectInfo{}, err
	}
	return f, ObjectInfo{Size: info.Size()}, nil
}

// Delete removes the object file.
func (l *LocalBackend) Delete(ctx context.Context, key string) error {
	p, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SignedUploadURL is not available on the local backend; clients upload
// through the service itself.
func (l *LocalBackend) SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", ErrSignedURLUnsupported
}

// Root returns the absolute root directory.
func (l *LocalBackend) Root() string {
	return l.root
}
