package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shelfsnap/apiserver/types"
)

// ItemRepository handles persistence for catalog items.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, name, description, category, tags, image_path, image_paths, estimated_value, confidence, rationale, created_at`

// EnsureImagePaths materializes the multi-image list on legacy records that
// carry only the single primary path. Pure and idempotent; applied to every
// item read, never written back to storage.
func EnsureImagePaths(item *types.CatalogItem) {
	if len(item.ImagePaths) == 0 && item.ImagePath != "" {
		item.ImagePaths = []string{item.ImagePath}
	}
}

func (r *ItemRepository) List(ctx context.Context, offset, limit int) ([]types.CatalogItem, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM items`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + itemColumns + `
		FROM items
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]types.CatalogItem, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListAll returns every item, oldest first. Used by the CSV export.
func (r *ItemRepository) ListAll(ctx context.Context) ([]types.CatalogItem, error) {
	const query = `
		SELECT ` + itemColumns + `
		FROM items
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ItemRepository) Get(ctx context.Context, id string) (types.CatalogItem, error) {
	const query = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE id = $1`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CatalogItem{}, ErrNotFound
		}
		return types.CatalogItem{}, err
	}
	return item, nil
}

func (r *ItemRepository) Create(ctx context.Context, item types.CatalogItem) (types.CatalogItem, error) {
	item.CreatedAt = time.Now()

	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return types.CatalogItem{}, err
	}
	pathsJSON, err := json.Marshal(item.ImagePaths)
	if err != nil {
		return types.CatalogItem{}, err
	}

	const query = `
		INSERT INTO items (id, name, description, category, tags, image_path, image_paths, estimated_value, confidence, rationale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.Name,
		item.Description,
		item.Category,
		tagsJSON,
		item.ImagePath,
		pathsJSON,
		item.EstimatedValue,
		item.Confidence,
		item.Rationale,
		item.CreatedAt,
	); err != nil {
		return types.CatalogItem{}, err
	}

	return item, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM items WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (types.CatalogItem, error) {
	var (
		item           types.CatalogItem
		tagsJSON       []byte
		pathsJSON      []byte
		estimatedValue sql.NullString
		confidence     sql.NullString
		rationale      sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Category,
		&tagsJSON,
		&item.ImagePath,
		&pathsJSON,
		&estimatedValue,
		&confidence,
		&rationale,
		&item.CreatedAt,
	); err != nil {
		return types.CatalogItem{}, err
	}

	_ = json.Unmarshal(tagsJSON, &item.Tags)
	if len(pathsJSON) > 0 {
		_ = json.Unmarshal(pathsJSON, &item.ImagePaths)
	}
	if estimatedValue.Valid {
		item.EstimatedValue = &estimatedValue.String
	}
	if confidence.Valid {
		item.Confidence = &confidence.String
	}
	if rationale.Valid {
		item.Rationale = &rationale.String
	}

	EnsureImagePaths(&item)
	return item, nil
}
