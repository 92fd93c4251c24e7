// Package ingestion provides the batch upsert pipeline for filing chunks.
//
// The Pipeline type turns raw chunk texts and their metadata into stored
// records: it embeds each batch, derives content-addressed IDs, and writes
// the assembled records to the vector store in a single upsert per batch.
// Re-ingesting identical content overwrites the same records rather than
// duplicating them.
package ingestion
