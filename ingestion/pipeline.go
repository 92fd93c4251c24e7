// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/filingvec/ai"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
)

// DefaultBatchSize is the number of chunks embedded and written per batch.
const DefaultBatchSize = 100

// Pipeline batches chunk texts through the embedder and into the vector store.
type Pipeline struct {
	embedder  ai.Embedder
	store     vectorstore.Store
	batchSize int
	prepare   func(context.Context) error
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets the number of chunks per embed-and-upsert batch.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithPrepare registers a hook that runs once per UpsertDocuments call, after
// input validation and before any embedding or storage I/O. Its error aborts
// the call. Used to ensure the target collection exists lazily.
func WithPrepare(prepare func(context.Context) error) Option {
	return func(p *Pipeline) error {
		p.prepare = prepare
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new upsert pipeline.
func NewPipeline(embedder ai.Embedder, store vectorstore.Store, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// UpsertDocuments embeds the texts and writes them to the store in batches.
// texts and metas must have equal length; the inputs are validated in full
// before any embedding or storage call is made. Record IDs are derived from
// content, so re-ingesting the same chunks overwrites rather than duplicates.
//
// The first failing batch aborts the run. The returned count is the number of
// chunks written by batches that completed before the failure.
func (p *Pipeline) UpsertDocuments(ctx context.Context, texts []string, metas []core.ChunkMetadata) (int, error) {
	if len(texts) != len(metas) {
		return 0, fmt.Errorf("%w: %d texts, %d metadata entries", ErrLengthMismatch, len(texts), len(metas))
	}
	for i, text := range texts {
		if text == "" {
			return 0, fmt.Errorf("chunk %d: %w", i, core.ErrEmptyText)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	if p.prepare != nil {
		if err := p.prepare(ctx); err != nil {
			return 0, err
		}
	}

	written := 0
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))

		if err := p.upsertBatch(ctx, texts[start:end], metas[start:end]); err != nil {
			p.logger.Error("batch upsert failed",
				"batch_start", start, "batch_size", end-start, "err", err)
			return written, fmt.Errorf("batch starting at %d: %w", start, err)
		}
		written += end - start
	}

	p.logger.Info("documents upserted", "count", written)
	return written, nil
}

func (p *Pipeline) upsertBatch(ctx context.Context, texts []string, metas []core.ChunkMetadata) error {
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	now := time.Now().UTC()
	records := make([]*core.ChunkRecord, len(texts))
	for i, text := range texts {
		record := core.NewChunkRecord(text, metas[i], now)
		record.Vector = vectors[i]
		records[i] = record
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("storing batch: %w", err)
	}
	return nil
}
