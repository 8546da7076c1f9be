package types

import "time"

// CatalogItem represents a single cataloged possession in the shelfsnap
// system. An item is created only after every image in its upload batch has
// been validated and persisted; partial batches never produce an item.
type CatalogItem struct {
	// ID is the unique identifier of the item. One fresh ID is minted per
	// upload batch and shared by all of the batch's stored images.
	ID string `json:"id" db:"id"`

	// Name is the short human-readable name of the item, usually produced
	// by the vision analyzer.
	Name string `json:"name" db:"name"`

	// Description is a longer free-text description of the item.
	Description string `json:"description" db:"description"`

	// Category is the item's catalog category, usually produced by the
	// vision analyzer.
	Category string `json:"category" db:"category"`

	// Tags are free-form labels used for filtering and search.
	Tags []string `json:"tags" db:"tags"`

	// ImagePath is the virtual path of the primary image. Legacy records
	// carry only this field. Invariant: once ImagePaths is materialized,
	// ImagePath equals ImagePaths[0].
	ImagePath string `json:"imageUrl" db:"image_path"`

	// ImagePaths is the ordered list of all image virtual paths. Absent on
	// legacy single-image records; derived in memory at read time from
	// ImagePath and never written back.
	ImagePaths []string `json:"imageUrls" db:"image_paths"`

	// EstimatedValue is a decimal-string value estimate from the vision
	// analyzer, or nil when the analyzer declined to estimate.
	EstimatedValue *string `json:"estimatedValue" db:"estimated_value"`

	// Confidence is the analyzer's confidence tier for its attributes
	// ("high", "medium" or "low"), or nil.
	Confidence *string `json:"confidence" db:"confidence"`

	// Rationale is the analyzer's free-text reasoning for its value
	// estimate, or nil.
	Rationale *string `json:"rationale" db:"rationale"`

	// CreatedAt is the timestamp at which the item was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
