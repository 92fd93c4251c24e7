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

package filingvec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/filingvec/ai"
	"github.com/poiesic/filingvec/ai/openai"
	"github.com/poiesic/filingvec/config"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/ingestion"
	"github.com/poiesic/filingvec/search"
	"github.com/poiesic/filingvec/vectorstore"
	"github.com/poiesic/filingvec/vectorstore/badger"
	"github.com/poiesic/filingvec/vectorstore/qdrant"
)

// dimensionProbe is the sentinel text embedded once to discover the model's
// output size when the collection has to be created.
const dimensionProbe = "dimension probe"

// VectorDatabase ties the embedding provider, vector store, ingestion
// pipeline and retrieval engine together behind one handle.
type VectorDatabase struct {
	provider ai.Provider
	store    vectorstore.Store
	pipeline *ingestion.Pipeline
	engine   *search.Engine
	logger   *slog.Logger

	ensureMu sync.Mutex
	ensured  bool
}

// DatabaseOption configures a VectorDatabase.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig  *ai.Config
	provider  ai.Provider
	batchSize int
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider injects a pre-built provider instead of constructing the
// OpenAI-compatible default. The database takes ownership and closes it.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithBatchSize sets the ingestion batch size.
func WithBatchSize(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.batchSize = size
	}
}

// NewVectorDatabase builds a database over the given store. The store is
// owned by the database afterwards and closed with it.
func NewVectorDatabase(store vectorstore.Store, opts ...DatabaseOption) (*VectorDatabase, error) {
	if store == nil {
		return nil, errors.New("vector store required")
	}

	options := &databaseOptions{
		aiConfig:  ai.DefaultConfig(),
		batchSize: ingestion.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	db := &VectorDatabase{
		provider: provider,
		store:    store,
		logger:   slog.Default().With("component", "filingvec"),
	}

	pipeline, err := ingestion.NewPipeline(provider.Embedder(), store,
		ingestion.WithBatchSize(options.batchSize),
		ingestion.WithPrepare(db.ensureCollection))
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}

	engine, err := search.NewEngine(provider.Embedder(), store)
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}

	db.pipeline = pipeline
	db.engine = engine
	return db, nil
}

// ensureCollection makes sure the collection exists before the first write.
// When absent, the embedder is probed once for its output size and the
// collection is created with cosine distance. A concurrent creator winning
// the race surfaces as ErrCollectionExists and counts as success.
func (db *VectorDatabase) ensureCollection(ctx context.Context) error {
	db.ensureMu.Lock()
	defer db.ensureMu.Unlock()
	if db.ensured {
		return nil
	}

	_, err := db.store.CollectionInfo(ctx)
	if err == nil {
		db.ensured = true
		return nil
	}
	if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return fmt.Errorf("checking collection: %w", err)
	}

	probe, err := db.provider.Embedder().EmbedText(ctx, dimensionProbe)
	if err != nil {
		return fmt.Errorf("probing embedding dimension: %w", err)
	}

	err = db.store.CreateCollection(ctx, len(probe))
	if err != nil && !errors.Is(err, vectorstore.ErrCollectionExists) {
		return fmt.Errorf("creating collection: %w", err)
	}

	db.logger.Info("collection ready", "dimension", len(probe))
	db.ensured = true
	return nil
}

// UpsertDocuments embeds and stores the chunk texts with their metadata,
// creating the collection on first use. Inputs are validated before the
// collection is touched. Returns the number of chunks written.
func (db *VectorDatabase) UpsertDocuments(ctx context.Context, texts []string, metas []core.ChunkMetadata) (int, error) {
	return db.pipeline.UpsertDocuments(ctx, texts, metas)
}

// Search runs a filtered semantic search.
func (db *VectorDatabase) Search(ctx context.Context, query string, opts search.Options) ([]*core.ScoredChunk, error) {
	return db.engine.Search(ctx, query, opts)
}

// HybridSearch runs the two-stage semantic-then-keyword retrieval.
func (db *VectorDatabase) HybridSearch(ctx context.Context, query string, keywords []string, opts search.Options) ([]*core.ScoredChunk, error) {
	return db.engine.HybridSearch(ctx, query, keywords, opts)
}

// DeleteByTicker removes every stored chunk for the ticker.
func (db *VectorDatabase) DeleteByTicker(ctx context.Context, ticker string) error {
	return db.store.DeleteByTicker(ctx, ticker)
}

// CollectionInfo reports collection counts for observability.
func (db *VectorDatabase) CollectionInfo(ctx context.Context) (*vectorstore.CollectionInfo, error) {
	return db.store.CollectionInfo(ctx)
}

// HealthCheck verifies the vector store is reachable. It never loads or
// invokes the embedding model.
func (db *VectorDatabase) HealthCheck(ctx context.Context) error {
	return db.store.HealthCheck(ctx)
}

// Store exposes the underlying vector store for maintenance tooling.
func (db *VectorDatabase) Store() vectorstore.Store {
	return db.store
}

// Embedder exposes the embedding side for maintenance tooling.
func (db *VectorDatabase) Embedder() ai.Embedder {
	return db.provider.Embedder()
}

// Close releases the provider and the store.
func (db *VectorDatabase) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing vector store", "err", err)
		return err
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultDB   *VectorDatabase
	defaultErr  error
)

// Default returns the process-wide database built from environment settings,
// creating it on first call. Tests and embedders wanting isolated instances
// should use NewVectorDatabase directly.
func Default() (*VectorDatabase, error) {
	defaultOnce.Do(func() {
		settings, err := config.Load()
		if err != nil {
			defaultErr = err
			return
		}
		defaultDB, defaultErr = fromSettings(settings)
	})
	return defaultDB, defaultErr
}

func fromSettings(settings *config.Settings) (*VectorDatabase, error) {
	var (
		store vectorstore.Store
		err   error
	)
	switch settings.Store.Backend {
	case "badger":
		store, err = badger.NewStore(settings.Store.BadgerPath, settings.Qdrant.Collection)
	default:
		store, err = qdrant.NewStore(qdrant.Config{
			URL:        settings.Qdrant.URL(),
			APIKey:     settings.Qdrant.APIKey,
			Collection: settings.Qdrant.Collection,
			Timeout:    time.Duration(settings.TimeoutSeconds) * time.Second,
		})
	}
	if err != nil {
		return nil, err
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(settings.Embedding.Host),
		ai.WithEmbeddingModel(settings.Embedding.Model),
	)

	return NewVectorDatabase(store,
		WithAIConfig(aiConfig),
		WithBatchSize(settings.BatchSize))
}
