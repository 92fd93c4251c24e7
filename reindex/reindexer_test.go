package reindex

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/filingvec/ai/mock"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
	"github.com/poiesic/filingvec/vectorstore/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, texts []string) vectorstore.Store {
	t.Helper()
	store, err := badger.NewMemoryStore("sec_filings")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	records := make([]*core.ChunkRecord, len(texts))
	for i, text := range texts {
		records[i] = core.NewChunkRecord(text, core.ChunkMetadata{Ticker: "ACME", Section: "MD&A"}, time.Now().UTC())
		records[i].Vector = mock.DeterministicVector(text, mock.DefaultDimension)
	}
	require.NoError(t, store.Upsert(ctx, records))
	return store
}

func testConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		Workers:        2,
	}
}

func TestNewReindexer_Validation(t *testing.T) {
	store := seedStore(t, nil)

	_, err := NewReindexer(nil, mock.NewMockEmbedder(), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewReindexer(store, nil, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestReindexer_Run(t *testing.T) {
	texts := []string{
		"Revenue grew 12% YoY",
		"Cash reserves declined",
		"Litigation exposure increased",
		"Margins compressed on input costs",
		"Guidance raised for fiscal 2026",
	}
	store := seedStore(t, texts)

	// A "new model": prefixed text embeddings, so every vector changes.
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, batch []string) ([][]float32, error) {
		vectors := make([][]float32, len(batch))
		for i, text := range batch {
			vectors[i] = mock.DeterministicVector("v2:"+text, mock.DefaultDimension)
		}
		return vectors, nil
	}

	var progress bytes.Buffer
	reindexer, err := NewReindexer(store, embedder, testConfig(), &progress)
	require.NoError(t, err)
	require.NoError(t, reindexer.Run(context.Background()))

	assert.Contains(t, progress.String(), "Reindex complete")

	// Count is unchanged; IDs are content-derived and content did not change.
	info, err := store.CollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(len(texts)), info.PointsCount)

	// Searching with a new-model query vector now finds an exact match.
	query := mock.DeterministicVector("v2:Revenue grew 12% YoY", mock.DefaultDimension)
	results, err := store.Search(context.Background(), query, vectorstore.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Revenue grew 12% YoY", results[0].Record.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestReindexer_Run_EmptyCollection(t *testing.T) {
	store := seedStore(t, nil)

	var progress bytes.Buffer
	reindexer, err := NewReindexer(store, mock.NewMockEmbedder(), testConfig(), &progress)
	require.NoError(t, err)
	require.NoError(t, reindexer.Run(context.Background()))
	assert.Contains(t, progress.String(), "No chunks found")
}

func TestReindexer_Run_EmbeddingFailureAborts(t *testing.T) {
	store := seedStore(t, []string{"one", "two", "three"})

	embedFailure := errors.New("model unavailable")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, batch []string) ([][]float32, error) {
		return nil, embedFailure
	}

	var progress bytes.Buffer
	reindexer, err := NewReindexer(store, embedder, testConfig(), &progress)
	require.NoError(t, err)

	err = reindexer.Run(context.Background())
	assert.ErrorIs(t, err, embedFailure)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	store := seedStore(t, nil)
	processor := NewBatchProcessor(store, mock.NewMockEmbedder(), 1, time.Millisecond)
	assert.NoError(t, processor.Process(context.Background(), nil))
}
