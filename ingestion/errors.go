package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrLengthMismatch is returned when the texts and metadata slices
	// passed to UpsertDocuments have different lengths.
	ErrLengthMismatch = errors.New("texts and metadata length mismatch")
)
