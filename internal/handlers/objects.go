package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shelfsnap/apiserver/internal/storage"
)

const signedUploadTTL = 15 * time.Minute

// uploadCategory is the virtual-path category for direct-write uploads.
const uploadCategory = "uploads"

// ObjectHandler serves the /objects/ virtual namespace and issues signed
// direct-upload URLs.
type ObjectHandler struct {
	storage *storage.Storage
}

// NewObjectHandler constructs a handler with the provided storage.
func NewObjectHandler(objectStorage *storage.Storage) *ObjectHandler {
	return &ObjectHandler{storage: objectStorage}
}

// ObjectRouter registers the retrieval gateway on the given router.
func ObjectRouter(r chi.Router, objectStorage *storage.Storage) {
	handler := NewObjectHandler(objectStorage)
	r.Get("/*", handler.ServeObject)
}

// ServeObject streams the object addressed by the request path. Path
// validation failures get the same 404 as missing objects so the endpoint
// cannot be used as a path-probing oracle.
func (h *ObjectHandler) ServeObject(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Path
	if !storage.IsValidObjectPath(requested) {
		writeError(w, http.StatusNotFound, codeNotFound, "object not found")
		return
	}

	key := storage.ObjectKeyFromPath(requested)

	exists, err := h.storage.Exists(r.Context(), key)
	if err != nil {
		slog.Error("object existence check failed", "key", key, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to fetch object")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, codeNotFound, "object not found")
		return
	}

	if err := h.storage.Stream(r.Context(), key, w); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Removed between the existence check and the read.
			writeError(w, http.StatusNotFound, codeNotFound, "object not found")
			return
		}
		// Headers may already be committed; log and let the copy abort.
		slog.Error("object stream failed", "key", key, "err", err)
	}
}

// CreateUploadURL mints a fresh object key and returns a short-lived signed
// URL a client can PUT bytes to directly.
func (h *ObjectHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf("%s/%s", uploadCategory, uuid.NewString())

	uploadURL, err := h.storage.SignedUploadURL(r.Context(), key, signedUploadTTL)
	if err != nil {
		if errors.Is(err, storage.ErrSignedURLUnsupported) {
			writeError(w, http.StatusNotImplemented, codeSignedUploadsUnsupported, "signed uploads are not supported by this deployment")
			return
		}
		slog.Error("failed to create signed upload url", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create upload url")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"uploadURL":  uploadURL,
		"objectPath": storage.ObjectPathFromKey(key),
	})
}
