package models

import "errors"

// Domain errors shared across repositories, services and handlers.
// Callers match them with errors.Is.
var (
	// ErrQuotaExceeded is returned when a submitter identity has used up its
	// upload quota. No side effects have been performed.
	ErrQuotaExceeded = errors.New("upload quota exceeded")

	// ErrDuplicateDigest is returned by the asset repository when an insert
	// loses the race on the content hash unique key. The ingestion pipeline
	// recovers from it internally; it is never surfaced to callers.
	ErrDuplicateDigest = errors.New("asset with this content hash already exists")

	// ErrAssetNotFound is returned when no asset matches the given identifier
	ErrAssetNotFound = errors.New("asset not found")

	// ErrTaskNotFound is returned when no task matches the given identifier
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidImage is returned by the processor when the stored bytes do
	// not decode as a supported image format
	ErrInvalidImage = errors.New("stored content is not a valid image")
)
