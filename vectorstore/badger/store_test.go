package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/filingvec/ai/mock"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) vectorstore.Store {
	t.Helper()
	store, err := NewMemoryStore("sec_filings")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// embeddedRecord builds a chunk record whose vector is the mock embedder's
// deterministic embedding of its text.
func embeddedRecord(text, ticker, section string) *core.ChunkRecord {
	record := core.NewChunkRecord(text, core.ChunkMetadata{Ticker: ticker, Section: section}, time.Now().UTC())
	record.Vector = mock.DeterministicVector(text, mock.DefaultDimension)
	return record
}

func TestCreateCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sec_filings"}, names)

	err = store.CreateCollection(ctx, mock.DefaultDimension)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionExists)
}

func TestUpsert_RequiresCollection(t *testing.T) {
	store := newTestStore(t)
	err := store.Upsert(context.Background(), []*core.ChunkRecord{embeddedRecord("text", "ACME", "MD&A")})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}

func TestUpsert_DimensionMismatchRejectedBeforeWrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	good := embeddedRecord("good chunk", "ACME", "MD&A")
	bad := embeddedRecord("bad chunk", "ACME", "MD&A")
	bad.Vector = []float32{0.1, 0.2} // wrong length

	err := store.Upsert(ctx, []*core.ChunkRecord{good, bad})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)

	// The whole batch is rejected; not even the well-formed record lands.
	info, err := store.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.PointsCount)
}

func TestUpsert_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	record := embeddedRecord("Revenue grew 12% YoY", "ACME", "MD&A")
	require.NoError(t, store.Upsert(ctx, []*core.ChunkRecord{record}))
	require.NoError(t, store.Upsert(ctx, []*core.ChunkRecord{record}))

	info, err := store.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.PointsCount)
	assert.Equal(t, uint64(1), info.VectorsCount)
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	records := []*core.ChunkRecord{
		embeddedRecord("Revenue grew 12% YoY", "ACME", "MD&A"),
		embeddedRecord("Cash reserves declined", "ACME", "Liquidity"),
		embeddedRecord("Litigation exposure increased", "GLOBEX", "Risk Factors"),
	}
	require.NoError(t, store.Upsert(ctx, records))

	query := mock.DeterministicVector("Revenue grew 12% YoY", mock.DefaultDimension)

	t.Run("exact text is the top hit with score 1", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Limit: 3})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "Revenue grew 12% YoY", results[0].Record.Text)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	})

	t.Run("descending score order", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Limit: 3})
		require.NoError(t, err)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("ticker filter", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Ticker: "GLOBEX", Limit: 10})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "GLOBEX", results[0].Record.Ticker)
	})

	t.Run("ticker and section filters are ANDed", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Ticker: "ACME", Section: "Liquidity", Limit: 10})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Cash reserves declined", results[0].Record.Text)
	})

	t.Run("score threshold drops weak matches", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Limit: 10, ScoreThreshold: 0.99})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Revenue grew 12% YoY", results[0].Record.Text)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, float32(0.99))
		}
	})

	t.Run("limit caps results", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("no matches is empty, not an error", func(t *testing.T) {
		results, err := store.Search(ctx, query, vectorstore.Query{Ticker: "NOPE", Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestDeleteByTicker(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	require.NoError(t, store.Upsert(ctx, []*core.ChunkRecord{
		embeddedRecord("Revenue grew 12% YoY", "ACME", "MD&A"),
		embeddedRecord("Cash reserves declined", "ACME", "Liquidity"),
		embeddedRecord("Litigation exposure increased", "GLOBEX", "Risk Factors"),
	}))

	require.NoError(t, store.DeleteByTicker(ctx, "ACME"))

	info, err := store.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.PointsCount)

	query := mock.DeterministicVector("Revenue grew 12% YoY", mock.DefaultDimension)
	results, err := store.Search(ctx, query, vectorstore.Query{Ticker: "ACME", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Deleting a ticker with no records is a no-op success.
	assert.NoError(t, store.DeleteByTicker(ctx, "ABSENT"))
}

func TestDeleteByTicker_ScopedToExactTicker(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	// Tickers are opaque caller values; one being a prefix of another must
	// not widen the delete.
	require.NoError(t, store.Upsert(ctx, []*core.ChunkRecord{
		embeddedRecord("Revenue grew 12% YoY", "A", "MD&A"),
		embeddedRecord("Cash reserves declined", "A:B", "Liquidity"),
		embeddedRecord("Litigation exposure increased", "AB", "Risk Factors"),
	}))

	require.NoError(t, store.DeleteByTicker(ctx, "A"))

	info, err := store.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.PointsCount)

	query := mock.DeterministicVector("Cash reserves declined", mock.DefaultDimension)
	results, err := store.Search(ctx, query, vectorstore.Query{Ticker: "A:B", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A:B", results[0].Record.Ticker)

	query = mock.DeterministicVector("Litigation exposure increased", mock.DefaultDimension)
	results, err = store.Search(ctx, query, vectorstore.Query{Ticker: "AB", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AB", results[0].Record.Ticker)
}

func TestIterate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, mock.DefaultDimension))

	texts := []string{
		"Revenue grew 12% YoY",
		"Cash reserves declined",
		"Litigation exposure increased",
	}
	records := make([]*core.ChunkRecord, len(texts))
	for i, text := range texts {
		records[i] = embeddedRecord(text, "ACME", "MD&A")
	}
	require.NoError(t, store.Upsert(ctx, records))

	var seen []string
	var batchSizes []int
	err := store.Iterate(ctx, 2, func(batch []*core.ChunkRecord) error {
		batchSizes = append(batchSizes, len(batch))
		for _, r := range batch {
			seen = append(seen, r.Text)
		}
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, texts, seen)
	assert.Equal(t, []int{2, 1}, batchSizes)

	t.Run("fn error stops iteration", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.Iterate(ctx, 1, func([]*core.ChunkRecord) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.HealthCheck(context.Background()), vectorstore.ErrStoreClosed)
}

func TestCollectionInfo_RequiresCollection(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CollectionInfo(context.Background())
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}
