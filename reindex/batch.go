package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/filingvec/ai"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
)

// BatchProcessor re-embeds batches of chunk records and writes them back.
type BatchProcessor struct {
	store          vectorstore.Store
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(store vectorstore.Store, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process re-embeds a batch of records and upserts them under their existing
// IDs. Vectors are normalized after embedding so cosine scoring stays exact.
// The upsert itself is not retried; the store call either succeeds or fails
// the batch.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(records) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(records), len(embeddings))
	}

	for i := range records {
		records[i].Vector = NormalizeVector(embeddings[i])
	}

	if err := bp.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert reindexed batch: %w", err)
	}

	return nil
}
