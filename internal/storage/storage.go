package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/shelfsnap/apiserver/config"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrSignedURLUnsupported is returned by backends without a signed
	// direct-upload flow.
	ErrSignedURLUnsupported = errors.New("signed upload urls are not supported by this backend")
)

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Size int64

	// Private marks blobs the backend reports as restricted; streamed
	// responses then carry a private cache-control directive.
	Private bool
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend  ObjectStorage
	cacheTTL int
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, cacheTTLSeconds int) *Storage {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 3600
	}
	return &Storage{backend: backend, cacheTTL: cacheTTLSeconds}
}

// NewFromConfig selects and constructs the configured backend. Called
// exactly once at process start; the decision is never revisited per
// request.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		backend, err = NewLocalBackend(cfg.LocalRoot)
	case "gcs":
		backend, err = NewGCSBackend(ctx, cfg.GCS)
	case "minio":
		backend, err = NewMinioBackend(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewStorage(backend, cfg.CacheTTLSeconds), nil
}

// Put uploads an object under the given key, overwriting any previous blob.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Exists reports whether an object is stored under the given key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	return s.backend.Exists(ctx, key)
}

// Delete removes the object under the given key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// SignedUploadURL returns a short-lived URL a client can PUT bytes to
// directly, bypassing this process.
func (s *Storage) SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.backend.SignedUploadURL(ctx, key, ttl)
}

// Stream writes the object at key to w with content and caching headers.
// The header write is a commit point: once the first body byte flows, a copy
// error can only abort the connection, never rewrite the response.
func (s *Storage) Stream(ctx context.Context, key string, w http.ResponseWriter) error {
	rc, info, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	visibility := "public"
	if info.Private {
		visibility = "private"
	}
	w.Header().Set("Content-Type", ContentTypeForKey(key))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("%s, max-age=%d", visibility, s.cacheTTL))

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("stream %s: %w", key, err)
	}
	return nil
}

// ContentTypeForKey maps a storage key's extension to a MIME type.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(key), ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
