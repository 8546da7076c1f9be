package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shelfsnap/apiserver/internal/services"
	"github.com/shelfsnap/apiserver/internal/storage"
	"github.com/shelfsnap/apiserver/internal/store"
	"github.com/shelfsnap/apiserver/types"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20

	// formFieldImages is the current multi-file field; formFieldImageLegacy
	// is the historical singular field older clients still send.
	formFieldImages      = "images"
	formFieldImageLegacy = "image"
)

// ItemHandler provides HTTP handlers for catalog items.
type ItemHandler struct {
	itemService *services.ItemService
}

// NewItemHandler constructs a handler with the provided service.
func NewItemHandler(itemService *services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// ItemRouter registers item routes on the given router.
func ItemRouter(r chi.Router, itemService *services.ItemService) {
	handler := NewItemHandler(itemService)

	r.Get("/", handler.ListItems)
	r.Post("/", handler.CreateItem)
	r.Get("/export", handler.ExportItems)
	r.Route("/{itemID}", func(r chi.Router) {
		r.Get("/", handler.GetItem)
		r.Delete("/", handler.DeleteItem)
	})
}

func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	items, total, err := h.itemService.List(r.Context(), offset, limit)
	if err != nil {
		slog.Error("failed to list items", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list items")
		return
	}

	writeJSON(w, http.StatusOK, ItemListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid item id")
		return
	}

	item, err := h.itemService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "item not found")
			return
		}
		slog.Error("failed to fetch item", "item_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to fetch item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	files, err := parseImageFiles(r)
	if err != nil {
		if errors.Is(err, services.ErrBatchTooLarge) {
			writeError(w, http.StatusBadRequest, codeBatchTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	created, err := h.itemService.CreateFromUpload(r.Context(), files)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid item id")
		return
	}

	if err := h.itemService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "item not found")
			return
		}
		slog.Error("failed to delete item", "item_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.csv"`)
	if err := h.itemService.ExportCSV(r.Context(), w); err != nil {
		// Headers are committed once rows start flowing; nothing to rewrite.
		slog.Error("csv export failed", "err", err)
	}
}

// ItemListResponse is the paginated list response payload.
type ItemListResponse struct {
	Items []types.CatalogItem `json:"items"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
	Total int                 `json:"total"`
}

// parseImageFiles extracts the uploaded image buffers from the multipart
// form, honoring both the pluralized field and the legacy singular one. The
// batch-size cap is enforced on the header list, before any file is read.
func parseImageFiles(r *http.Request) ([]services.UploadFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, errors.New("invalid multipart form")
	}
	if r.MultipartForm == nil {
		return nil, errors.New("missing form data")
	}

	headers := r.MultipartForm.File[formFieldImages]
	if len(headers) == 0 {
		headers = r.MultipartForm.File[formFieldImageLegacy]
	}
	if len(headers) == 0 {
		return nil, services.ErrEmptyBatch
	}
	if len(headers) > services.MaxBatchSize {
		return nil, services.ErrBatchTooLarge
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, header := range headers {
		data, err := readFileLimited(header, maxImageBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, services.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readFileLimited(header *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q", header.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q", header.Filename)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("uploaded file %q too large", header.Filename)
	}
	return data, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, codeBatchTooLarge, err.Error())
	case errors.Is(err, services.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, storage.ErrUnsupportedImageKind):
		writeError(w, http.StatusBadRequest, codeUnsupportedImageType, err.Error())
	case errors.Is(err, storage.ErrImageKindMismatch):
		writeError(w, http.StatusBadRequest, codeImageTypeMismatch, err.Error())
	default:
		slog.Error("upload failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create item")
	}
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}
