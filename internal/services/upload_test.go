package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shelfsnap/apiserver/internal/storage"
)

func jpegBytes() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
}

func pngBytes() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}
}

// memBackend is an in-memory ObjectStorage used to observe the
// orchestrator's save behavior.
type memBackend struct {
	objects map[string][]byte
	putKeys []string
	failAt  int // 1-based Put call index that fails; 0 disables
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (m *memBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.failAt > 0 && len(m.putKeys)+1 == m.failAt {
		return errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.putKeys = append(m.putKeys, key)
	return nil
}

func (m *memBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memBackend) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Size: int64(len(data))}, nil
}

func (m *memBackend) Delete(ctx context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memBackend) SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", storage.ErrSignedURLUnsupported
}

func newUploadService(backend storage.ObjectStorage) *ItemService {
	return NewItemService(nil, storage.NewStorage(backend, 60), nil, nil)
}

func uploadFiles(n int) []UploadFile {
	files := make([]UploadFile, n)
	for i := range files {
		files[i] = UploadFile{
			Filename:    fmt.Sprintf("photo-%d.jpg", i),
			ContentType: "image/jpeg",
			Data:        jpegBytes(),
		}
	}
	return files
}

func TestStoreImagesSingle(t *testing.T) {
	backend := newMemBackend()
	s := newUploadService(backend)

	itemID, paths, err := s.storeImages(context.Background(), "items", uploadFiles(1))
	if err != nil {
		t.Fatalf("storeImages: %v", err)
	}
	if itemID == "" {
		t.Fatalf("empty item id")
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths", len(paths))
	}
	want := "/objects/items/" + itemID + ".jpg"
	if paths[0] != want {
		t.Fatalf("path = %q, want %q", paths[0], want)
	}
	if _, ok := backend.objects["items/"+itemID+".jpg"]; !ok {
		t.Fatalf("blob not stored, keys: %v", backend.putKeys)
	}
}

func TestStoreImagesMultiKeyLayoutAndOrder(t *testing.T) {
	backend := newMemBackend()
	s := newUploadService(backend)

	files := []UploadFile{
		{Filename: "a.jpg", ContentType: "image/jpeg", Data: jpegBytes()},
		{Filename: "b.png", ContentType: "image/png", Data: pngBytes()},
		{Filename: "c.jpg", ContentType: "image/jpeg", Data: jpegBytes()},
	}
	itemID, paths, err := s.storeImages(context.Background(), "items", files)
	if err != nil {
		t.Fatalf("storeImages: %v", err)
	}
	wantPaths := []string{
		"/objects/items/" + itemID + "/0.jpg",
		"/objects/items/" + itemID + "/1.png",
		"/objects/items/" + itemID + "/2.jpg",
	}
	for i, want := range wantPaths {
		if paths[i] != want {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want)
		}
	}
	// Saves must run in strict index order.
	for i, key := range backend.putKeys {
		if !strings.HasSuffix(wantPaths[i], key) {
			t.Errorf("save %d wrote %q, want suffix of %q", i, key, wantPaths[i])
		}
	}
}

func TestStoreImagesBatchBoundary(t *testing.T) {
	backend := newMemBackend()
	s := newUploadService(backend)

	if _, paths, err := s.storeImages(context.Background(), "items", uploadFiles(10)); err != nil {
		t.Fatalf("batch of 10: %v", err)
	} else if len(paths) != 10 {
		t.Fatalf("batch of 10 produced %d paths", len(paths))
	}

	oversized := newMemBackend()
	s = newUploadService(oversized)
	_, _, err := s.storeImages(context.Background(), "items", uploadFiles(11))
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("batch of 11: %v, want ErrBatchTooLarge", err)
	}
	if len(oversized.putKeys) != 0 {
		t.Fatalf("batch of 11 wrote %d blobs before rejection", len(oversized.putKeys))
	}
}

func TestStoreImagesEmptyBatch(t *testing.T) {
	s := newUploadService(newMemBackend())
	if _, _, err := s.storeImages(context.Background(), "items", nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
}

func TestStoreImagesMismatchAbortsBeforeAnySave(t *testing.T) {
	backend := newMemBackend()
	s := newUploadService(backend)

	files := []UploadFile{
		{Filename: "ok.jpg", ContentType: "image/jpeg", Data: jpegBytes()},
		{Filename: "a.png", ContentType: "image/png", Data: jpegBytes()}, // lying about the type
	}
	_, _, err := s.storeImages(context.Background(), "items", files)
	if !errors.Is(err, storage.ErrImageKindMismatch) {
		t.Fatalf("err = %v, want ErrImageKindMismatch", err)
	}
	if len(backend.putKeys) != 0 {
		t.Fatalf("mismatch batch wrote %d blobs", len(backend.putKeys))
	}
}

func TestStoreImagesSaveFailureKeepsEarlierBlobs(t *testing.T) {
	backend := newMemBackend()
	backend.failAt = 2
	s := newUploadService(backend)

	_, _, err := s.storeImages(context.Background(), "items", uploadFiles(3))
	if err == nil {
		t.Fatalf("expected save failure")
	}
	// No rollback: the first blob stays behind for offline cleanup.
	if len(backend.objects) != 1 {
		t.Fatalf("got %d surviving blobs, want 1", len(backend.objects))
	}
}

func TestExtensionForKind(t *testing.T) {
	tests := []struct {
		kind storage.ImageKind
		want string
	}{
		{storage.KindJPEG, "jpg"},
		{storage.KindPNG, "png"},
		{storage.KindWebP, "webp"},
		{storage.KindUnknown, "jpg"},
	}
	for _, tt := range tests {
		if got := extensionForKind(tt.kind); got != tt.want {
			t.Errorf("extensionForKind(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
