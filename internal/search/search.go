// Package search maintains the full-text index of asset metadata. The index
// is a derived, best-effort projection of the asset table: it may lag behind
// or miss documents without affecting correctness, and can be rebuilt from
// the database at any time.
package search

import "time"

// DefaultLimit caps query results when the caller does not specify a limit
const DefaultLimit = 50

// Document is the projection of an asset into the search index, keyed by the
// asset identifier
type Document struct {
	ID           string    `json:"image_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ContentHash  string    `json:"file_hash"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
