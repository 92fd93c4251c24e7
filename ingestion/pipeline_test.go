package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/filingvec/ai/mock"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
	"github.com/poiesic/filingvec/vectorstore/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *mock.MockEmbedder, vectorstore.Store) {
	t.Helper()

	store, err := badger.NewMemoryStore("sec_filings")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateCollection(context.Background(), mock.DefaultDimension))

	embedder := mock.NewMockEmbedder()
	pipeline, err := NewPipeline(embedder, store, opts...)
	require.NoError(t, err)
	return pipeline, embedder, store
}

func TestNewPipeline_Validation(t *testing.T) {
	store, err := badger.NewMemoryStore("sec_filings")
	require.NoError(t, err)
	defer store.Close()

	_, err = NewPipeline(nil, store)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(mock.NewMockEmbedder(), store, WithBatchSize(0))
	assert.Error(t, err)
}

func TestUpsertDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("length mismatch fails before any embedding", func(t *testing.T) {
		pipeline, embedder, _ := newTestPipeline(t)

		count, err := pipeline.UpsertDocuments(ctx,
			[]string{"one", "two"},
			[]core.ChunkMetadata{{Ticker: "ACME"}})
		assert.ErrorIs(t, err, ErrLengthMismatch)
		assert.Zero(t, count)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("empty text fails before any embedding", func(t *testing.T) {
		pipeline, embedder, _ := newTestPipeline(t)

		count, err := pipeline.UpsertDocuments(ctx,
			[]string{"one", ""},
			[]core.ChunkMetadata{{Ticker: "ACME"}, {Ticker: "ACME"}})
		assert.ErrorIs(t, err, core.ErrEmptyText)
		assert.Zero(t, count)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("no documents is a no-op", func(t *testing.T) {
		pipeline, embedder, _ := newTestPipeline(t)

		count, err := pipeline.UpsertDocuments(ctx, nil, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("prepare hook runs after validation, before embedding", func(t *testing.T) {
		store, err := badger.NewMemoryStore("sec_filings")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

		embedder := mock.NewMockEmbedder()
		prepared := 0
		pipeline, err := NewPipeline(embedder, store, WithPrepare(func(context.Context) error {
			assert.Zero(t, embedder.CallCount(), "prepare must precede embedding")
			prepared++
			return nil
		}))
		require.NoError(t, err)

		_, err = pipeline.UpsertDocuments(ctx,
			[]string{"one", "two"},
			[]core.ChunkMetadata{{Ticker: "ACME"}})
		assert.ErrorIs(t, err, ErrLengthMismatch)
		assert.Zero(t, prepared, "invalid input must not reach prepare")

		count, err := pipeline.UpsertDocuments(ctx,
			[]string{"one"},
			[]core.ChunkMetadata{{Ticker: "ACME"}})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, 1, prepared)
	})

	t.Run("writes all documents across batches", func(t *testing.T) {
		pipeline, embedder, store := newTestPipeline(t, WithBatchSize(2))

		texts := []string{
			"Revenue grew 12% YoY",
			"Cash reserves declined",
			"Litigation exposure increased",
			"Margins compressed on input costs",
			"Guidance raised for fiscal 2026",
		}
		metas := make([]core.ChunkMetadata, len(texts))
		for i := range metas {
			metas[i] = core.ChunkMetadata{Ticker: "ACME", Section: "MD&A"}
		}

		count, err := pipeline.UpsertDocuments(ctx, texts, metas)
		require.NoError(t, err)
		assert.Equal(t, 5, count)
		assert.Equal(t, 3, embedder.CallCount()) // batches of 2, 2, 1

		info, err := store.CollectionInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), info.PointsCount)
	})

	t.Run("re-ingesting identical chunks does not duplicate", func(t *testing.T) {
		pipeline, _, store := newTestPipeline(t)

		texts := []string{"Revenue grew 12% YoY"}
		metas := []core.ChunkMetadata{{Ticker: "ACME", Section: "MD&A"}}

		for range 2 {
			count, err := pipeline.UpsertDocuments(ctx, texts, metas)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		}

		info, err := store.CollectionInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), info.PointsCount)
	})

	t.Run("fails fast and reports completed count", func(t *testing.T) {
		pipeline, embedder, store := newTestPipeline(t, WithBatchSize(1))

		embedFailure := errors.New("model unavailable")
		calls := 0
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls > 2 {
				return nil, embedFailure
			}
			vectors := make([][]float32, len(texts))
			for i, text := range texts {
				vectors[i] = mock.DeterministicVector(text, mock.DefaultDimension)
			}
			return vectors, nil
		}

		texts := []string{"first", "second", "third", "fourth"}
		metas := make([]core.ChunkMetadata, len(texts))
		for i := range metas {
			metas[i] = core.ChunkMetadata{Ticker: "ACME"}
		}

		count, err := pipeline.UpsertDocuments(ctx, texts, metas)
		assert.ErrorIs(t, err, embedFailure)
		assert.Equal(t, 2, count)

		info, err := store.CollectionInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), info.PointsCount)
	})
}
