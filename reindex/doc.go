// Package reindex re-embeds every stored filing chunk with the configured
// embedding model and writes the refreshed vectors back to the vector store.
//
// It exists for model swaps that keep the collection's dimensionality, for
// example moving between fine-tunes of the same base model. A swap to a model
// with a different output size requires a new collection instead; the store
// rejects the first mismatched batch.
//
// Batches are embedded concurrently on a worker pool, each with retry and
// exponential backoff around the embedding call. Progress is reported to a
// caller-supplied writer.
package reindex
