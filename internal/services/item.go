package services

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shelfsnap/apiserver/internal/events"
	"github.com/shelfsnap/apiserver/internal/storage"
	"github.com/shelfsnap/apiserver/internal/vision"
	"github.com/shelfsnap/apiserver/types"
)

// ItemRepository defines persistence operations for catalog items.
type ItemRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.CatalogItem, int, error)
	ListAll(ctx context.Context) ([]types.CatalogItem, error)
	Get(ctx context.Context, id string) (types.CatalogItem, error)
	Create(ctx context.Context, item types.CatalogItem) (types.CatalogItem, error)
	Delete(ctx context.Context, id string) error
}

// ItemService encapsulates catalog item use-cases.
type ItemService struct {
	repo     ItemRepository
	storage  *storage.Storage
	analyzer vision.Analyzer   // nil when analysis is not configured
	events   *events.Publisher // nil publisher publishes nothing
}

func NewItemService(repo ItemRepository, objectStorage *storage.Storage, analyzer vision.Analyzer, publisher *events.Publisher) *ItemService {
	return &ItemService{
		repo:     repo,
		storage:  objectStorage,
		analyzer: analyzer,
		events:   publisher,
	}
}

func (s *ItemService) List(ctx context.Context, offset, limit int) ([]types.CatalogItem, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *ItemService) Get(ctx context.Context, id string) (types.CatalogItem, error) {
	return s.repo.Get(ctx, id)
}

// CreateFromUpload runs the full upload pipeline for one batch of images and
// creates the catalog item. The item row is written only after every image
// is persisted; analyzer failure downgrades the record to placeholder
// attributes instead of failing the upload.
func (s *ItemService) CreateFromUpload(ctx context.Context, files []UploadFile) (types.CatalogItem, error) {
	itemID, paths, err := s.storeImages(ctx, objectCategory, files)
	if err != nil {
		return types.CatalogItem{}, err
	}

	analysis := s.analyzeFirstImage(ctx, files[0])

	item := types.CatalogItem{
		ID:             itemID,
		Name:           analysis.Name,
		Description:    analysis.Description,
		Category:       analysis.Category,
		Tags:           analysis.Tags,
		ImagePath:      paths[0],
		ImagePaths:     paths,
		EstimatedValue: analysis.EstimatedValue,
		Confidence:     analysis.Confidence,
		Rationale:      analysis.Rationale,
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return types.CatalogItem{}, err
	}

	if err := s.events.PublishItemEvent(ctx, events.ItemEvent{
		Type:       events.TypeItemCreated,
		ItemID:     created.ID,
		ImageCount: len(created.ImagePaths),
	}); err != nil {
		slog.Warn("failed to publish item created event", "item_id", created.ID, "err", err)
	}

	return created, nil
}

// Delete removes the item record, then best-effort removes its blobs. Blob
// removal failures leave orphans for offline cleanup; the delete still
// succeeds.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	for _, p := range item.ImagePaths {
		if !storage.IsValidObjectPath(p) {
			continue
		}
		if err := s.storage.Delete(ctx, storage.ObjectKeyFromPath(p)); err != nil {
			slog.Warn("failed to remove item blob", "item_id", id, "path", p, "err", err)
		}
	}

	if err := s.events.PublishItemEvent(ctx, events.ItemEvent{
		Type:   events.TypeItemDeleted,
		ItemID: id,
	}); err != nil {
		slog.Warn("failed to publish item deleted event", "item_id", id, "err", err)
	}

	return nil
}

// ExportCSV writes the whole catalog as CSV to w.
func (s *ItemService) ExportCSV(ctx context.Context, w io.Writer) error {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "name", "description", "category", "tags", "image_url", "image_count", "estimated_value", "confidence", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, item := range items {
		record := []string{
			item.ID,
			item.Name,
			item.Description,
			item.Category,
			strings.Join(item.Tags, ";"),
			item.ImagePath,
			strconv.Itoa(len(item.ImagePaths)),
			stringOrEmpty(item.EstimatedValue),
			stringOrEmpty(item.Confidence),
			item.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *ItemService) analyzeFirstImage(ctx context.Context, file UploadFile) vision.Analysis {
	if s.analyzer == nil {
		return vision.Placeholder()
	}
	analysis, err := s.analyzer.AnalyzeImage(ctx, file.Data, string(storage.Classify(file.Data)))
	if err != nil {
		slog.Warn("image analysis failed, using placeholder attributes", "err", err)
		return vision.Placeholder()
	}
	return analysis
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
