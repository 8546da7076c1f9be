package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/shelfsnap/apiserver/config"
	"google.golang.org/api/option"
)

// GCSBackend stores objects in a Google Cloud Storage bucket. Signed upload
// URLs are obtained from a local trusted sidecar proxy rather than from
// service-account keys held by this process.
type GCSBackend struct {
	client  *storage.Client
	bucket  string
	prefix  string
	private bool
	sidecar *SidecarClient
}

// NewGCSBackend constructs a GCS backend from config. The configured root is
// slash-delimited: the first segment is the bucket, the rest becomes the
// object key prefix.
func NewGCSBackend(ctx context.Context, cfg config.GCSConfig) (*GCSBackend, error) {
	root := strings.Trim(strings.TrimSpace(cfg.Root), "/")
	if root == "" {
		return nil, errors.New("gcs root is required")
	}
	bucket, prefix, _ := strings.Cut(root, "/")

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSBackend{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		private: cfg.Private,
		sidecar: NewSidecarClient(cfg.SidecarURL),
	}, nil
}

func (g *GCSBackend) objectName(key string) string {
	if g.prefix == "" {
		return key
	}
	return g.prefix + "/" + key
}

// Put uploads an object, overwriting any previous blob under the same key.
func (g *GCSBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	writer := g.client.Bucket(g.bucket).Object(g.objectName(key)).NewWriter(ctx)
	if strings.TrimSpace(contentType) != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Exists reports whether an object is stored under the given key.
func (g *GCSBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(g.objectName(key)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get opens a reader for the object.
func (g *GCSBackend) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, err := g.client.Bucket(g.bucket).Object(g.objectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	return reader, ObjectInfo{Size: reader.Attrs.Size, Private: g.private}, nil
}

// Delete removes the object.
func (g *GCSBackend) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(g.objectName(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

// SignedUploadURL asks the sidecar proxy for a short-lived PUT URL.
func (g *GCSBackend) SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return g.sidecar.SignURL(ctx, g.bucket, g.objectName(key), "PUT", ttl)
}

// Bucket returns the configured bucket name.
func (g *GCSBackend) Bucket() string {
	return g.bucket
}
