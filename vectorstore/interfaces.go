package vectorstore

import (
	"context"

	"github.com/poiesic/filingvec/core"
)

// Query restricts and bounds a similarity search.
type Query struct {
	// Ticker filters results to a single company key. Empty means unfiltered.
	Ticker string

	// Section filters results to a single document section. Empty means
	// unfiltered. When both Ticker and Section are set they are ANDed.
	Section string

	// Limit is the maximum number of results to return.
	Limit int

	// ScoreThreshold drops results whose similarity score is below it.
	// Zero disables threshold filtering.
	ScoreThreshold float32
}

// CollectionInfo describes a collection for observability purposes.
// Callers must not base control decisions on it.
type CollectionInfo struct {
	Name         string
	PointsCount  uint64
	VectorsCount uint64
	Status       string
}

// Store persists chunk records and serves filtered similarity searches over
// them. A Store is bound to a single named collection at construction time.
// Implementations must be thread-safe and support concurrent access; they rely
// on the backend's own concurrency control for last-write-wins semantics under
// concurrent upserts to the same ID.
type Store interface {
	// Collections lists the names of all collections known to the backend.
	Collections(ctx context.Context) ([]string, error)

	// CreateCollection creates the store's collection with the given vector
	// dimension and cosine distance. Returns ErrCollectionExists if the
	// collection is already present; callers performing an idempotent ensure
	// treat that as success.
	CreateCollection(ctx context.Context, dimension int) error

	// Upsert writes the records as one operation. Records with IDs already
	// present are replaced in full. A vector whose length disagrees with the
	// collection's dimension fails the whole call with ErrDimensionMismatch
	// before anything is written.
	Upsert(ctx context.Context, records []*core.ChunkRecord) error

	// Search returns up to query.Limit records nearest to the vector under
	// cosine similarity, restricted by the query's filters, ordered by
	// descending score. An empty result is not an error.
	Search(ctx context.Context, vector []float32, query Query) ([]*core.ScoredChunk, error)

	// Iterate streams every record in the collection to fn in batches of at
	// most batchSize, in an unspecified but stable order. Iteration stops on
	// the first error from fn, returning it.
	Iterate(ctx context.Context, batchSize int, fn func([]*core.ChunkRecord) error) error

	// DeleteByTicker removes every record whose ticker equals the given value
	// as one filtered operation. Deleting an absent ticker is a no-op success.
	DeleteByTicker(ctx context.Context, ticker string) error

	// CollectionInfo reports point/vector counts and status for the
	// store's collection.
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)

	// HealthCheck verifies the backend is reachable. It must not require
	// loading or invoking the embedding model.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
