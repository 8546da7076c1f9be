package storage

import (
	"bytes"
	"errors"
	"strings"
)

// ImageKind is the sniffed format of an image buffer.
type ImageKind string

const (
	KindJPEG    ImageKind = "jpeg"
	KindPNG     ImageKind = "png"
	KindWebP    ImageKind = "webp"
	KindUnknown ImageKind = ""
)

// minSniffLen is the shortest buffer Classify will look at; the WebP
// signature needs bytes 8-11.
const minSniffLen = 12

var (
	// ErrUnsupportedImageKind is returned when the declared type is not a
	// supported image format.
	ErrUnsupportedImageKind = errors.New("unsupported image type")

	// ErrImageKindMismatch is returned when the buffer's actual bytes do
	// not match the declared format.
	ErrImageKindMismatch = errors.New("image content does not match declared type")
)

// Classify infers an image format from the buffer's leading bytes only.
// Buffers shorter than 12 bytes are always unknown.
func Classify(buf []byte) ImageKind {
	if len(buf) < minSniffLen {
		return KindUnknown
	}
	switch {
	case buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF:
		return KindJPEG
	case buf[0] == 0x89 && buf[1] == 0x50 && buf[2] == 0x4E && buf[3] == 0x47:
		return KindPNG
	case bytes.Equal(buf[0:4], []byte("RIFF")) && bytes.Equal(buf[8:12], []byte("WEBP")):
		return KindWebP
	}
	return KindUnknown
}

// NormalizeImageKind maps a declared content type or bare format name to a
// canonical ImageKind. An "image/" media type prefix is accepted and "jpg"
// is the same kind as "jpeg".
func NormalizeImageKind(claimed string) ImageKind {
	claimed = strings.ToLower(strings.TrimSpace(claimed))
	claimed = strings.TrimPrefix(claimed, "image/")
	switch claimed {
	case "jpeg", "jpg":
		return KindJPEG
	case "png":
		return KindPNG
	case "webp":
		return KindWebP
	}
	return KindUnknown
}

// ValidateImage cross-checks the buffer's sniffed format against the
// client-declared one. Both must identify the same supported format; a
// client cannot smuggle content by lying about either side.
func ValidateImage(buf []byte, claimed string) error {
	kind := NormalizeImageKind(claimed)
	if kind == KindUnknown {
		return ErrUnsupportedImageKind
	}
	if Classify(buf) != kind {
		return ErrImageKindMismatch
	}
	return nil
}
