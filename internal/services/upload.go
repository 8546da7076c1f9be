package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shelfsnap/apiserver/internal/storage"
)

const (
	// MaxBatchSize is the most images one upload may carry. Checked before
	// any file is validated or saved.
	MaxBatchSize = 10

	// objectCategory is the virtual-path category segment for item images.
	objectCategory = "items"
)

var (
	ErrEmptyBatch    = errors.New("at least one image is required")
	ErrBatchTooLarge = errors.New("too many images in one batch")
)

// UploadFile is one uploaded image buffer with its client-declared type.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// storeImages runs the storage pipeline for one batch: validate every
// buffer, mint one item ID, build keys and virtual paths, persist in strict
// index order. Validation is all-or-nothing; persistence is not — a failed
// save leaves earlier blobs in place for offline cleanup, and the caller
// reports a single failure (the item row is never created).
func (s *ItemService) storeImages(ctx context.Context, category string, files []UploadFile) (string, []string, error) {
	if len(files) == 0 {
		return "", nil, ErrEmptyBatch
	}
	if len(files) > MaxBatchSize {
		return "", nil, ErrBatchTooLarge
	}

	kinds := make([]storage.ImageKind, len(files))
	for i, f := range files {
		if err := storage.ValidateImage(f.Data, f.ContentType); err != nil {
			return "", nil, fmt.Errorf("file %d (%s): %w", i, f.Filename, err)
		}
		kinds[i] = storage.Classify(f.Data)
	}

	itemID := uuid.NewString()

	keys := make([]string, len(files))
	for i := range files {
		ext := extensionForKind(kinds[i])
		if len(files) == 1 {
			keys[i] = fmt.Sprintf("%s/%s.%s", category, itemID, ext)
		} else {
			keys[i] = fmt.Sprintf("%s/%s/%d.%s", category, itemID, i, ext)
		}
	}

	// Index order is a correctness requirement: index 0 is the primary,
	// analyzed image and must land first.
	for i, f := range files {
		contentType := "image/" + string(kinds[i])
		if err := s.storage.Put(ctx, keys[i], bytes.NewReader(f.Data), int64(len(f.Data)), contentType); err != nil {
			return "", nil, fmt.Errorf("save image %d: %w", i, err)
		}
	}

	paths := make([]string, len(keys))
	for i, key := range keys {
		paths[i] = storage.ObjectPathFromKey(key)
	}
	return itemID, paths, nil
}

// extensionForKind derives the stored file extension from the sniffed
// format. The client-supplied filename is never consulted. Validated
// buffers are always one of the three supported kinds, so the fallback only
// covers jpeg.
func extensionForKind(kind storage.ImageKind) string {
	switch kind {
	case storage.KindPNG:
		return "png"
	case storage.KindWebP:
		return "webp"
	default:
		return "jpg"
	}
}
