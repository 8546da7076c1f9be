// Package vision extracts descriptive item attributes from photographs. The
// analyzer is an opaque collaborator: callers treat any failure as "no
// attributes available" and fall back to placeholders rather than failing
// the upload.
package vision

import "context"

// Analysis is the attribute bag an analyzer returns for one image.
type Analysis struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	EstimatedValue *string  `json:"estimatedValue"`
	Confidence     *string  `json:"confidence"`
	Rationale      *string  `json:"rationale"`
}

// Analyzer extracts attributes from a single image. format is the sniffed
// image format ("jpeg", "png", "webp").
type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, format string) (Analysis, error)
}

// Placeholder returns the attributes recorded when analysis is unavailable
// or fails.
func Placeholder() Analysis {
	return Analysis{
		Name:        "Untitled Item",
		Description: "",
		Category:    "Uncategorized",
	}
}
