package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shelfsnap/apiserver/internal/storage"
)

// countingBackend records every call so tests can assert that rejected
// requests never reach the backend.
type countingBackend struct {
	objects   map[string][]byte
	signedURL string
	signedErr error
	calls     int
}

func newCountingBackend() *countingBackend {
	return &countingBackend{objects: make(map[string][]byte)}
}

func (b *countingBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b.calls++
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *countingBackend) Exists(ctx context.Context, key string) (bool, error) {
	b.calls++
	_, ok := b.objects[key]
	return ok, nil
}

func (b *countingBackend) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	b.calls++
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Size: int64(len(data))}, nil
}

func (b *countingBackend) Delete(ctx context.Context, key string) error {
	b.calls++
	delete(b.objects, key)
	return nil
}

func (b *countingBackend) SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	b.calls++
	if b.signedErr != nil {
		return "", b.signedErr
	}
	return b.signedURL, nil
}

func newObjectTestServer(backend storage.ObjectStorage) *httptest.Server {
	r := chi.NewRouter()
	objectStorage := storage.NewStorage(backend, 60)
	r.Route("/objects", func(r chi.Router) {
		ObjectRouter(r, objectStorage)
	})
	handler := NewObjectHandler(objectStorage)
	r.Post("/api/objects/upload", handler.CreateUploadURL)
	return httptest.NewServer(r)
}

func TestServeObjectStreamsStoredObject(t *testing.T) {
	backend := newCountingBackend()
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
	backend.objects["items/abc.jpg"] = data

	srv := newObjectTestServer(backend)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/objects/items/abc.jpg")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, data) {
		t.Errorf("body mismatch")
	}
}

func TestServeObjectTraversalRejectedBeforeBackend(t *testing.T) {
	backend := newCountingBackend()
	handler := NewObjectHandler(storage.NewStorage(backend, 60))

	// Built by hand so no client-side path cleaning interferes.
	req := httptest.NewRequest(http.MethodGet, "/objects/placeholder", nil)
	req.URL.Path = "/objects/items/../../etc/passwd"
	rec := httptest.NewRecorder()
	handler.ServeObject(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if backend.calls != 0 {
		t.Fatalf("backend touched %d times for rejected path", backend.calls)
	}
}

func TestServeObjectInvalidPathsUniform404(t *testing.T) {
	backend := newCountingBackend()
	backend.objects["items/real.jpg"] = []byte("x")
	handler := NewObjectHandler(storage.NewStorage(backend, 60))

	paths := []string{
		"/objects/items/a\x00.jpg",
		"/objects/items//a.jpg",
		"/objects/items/missing.jpg",
	}
	var bodies []string
	for _, p := range paths {
		req := httptest.NewRequest(http.MethodGet, "/objects/placeholder", nil)
		req.URL.Path = p
		rec := httptest.NewRecorder()
		handler.ServeObject(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %q status = %d, want 404", p, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	// Invalid and missing paths must be indistinguishable.
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Errorf("response %d differs from response 0: %q vs %q", i, bodies[i], bodies[0])
		}
	}
}

func TestCreateUploadURLUnsupported(t *testing.T) {
	backend := newCountingBackend()
	backend.signedErr = storage.ErrSignedURLUnsupported
	srv := newObjectTestServer(backend)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/objects/upload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "signed_uploads_unsupported" {
		t.Fatalf("code = %q", errResp.Code)
	}
}

func TestCreateUploadURL(t *testing.T) {
	backend := newCountingBackend()
	backend.signedURL = "https://bucket.example/put?sig=abc"
	srv := newObjectTestServer(backend)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/objects/upload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["uploadURL"] != backend.signedURL {
		t.Errorf("uploadURL = %q", payload["uploadURL"])
	}
	if !strings.HasPrefix(payload["objectPath"], "/objects/uploads/") {
		t.Errorf("objectPath = %q", payload["objectPath"])
	}
}
