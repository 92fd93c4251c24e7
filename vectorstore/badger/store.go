// Package badger implements vectorstore.Store on an embedded BadgerDB
// instance. Similarity search is a brute-force cosine scan over the
// collection, which is adequate for the single-node corpus sizes this
// backend targets; larger deployments use the qdrant backend.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
)

// Store is a vectorstore.Store backed by a BadgerDB database.
type Store struct {
	db         *badger.DB
	collection string
	logger     *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// NewStore opens a BadgerDB database at the specified path, creating the
// directory if needed, and binds the store to the named collection.
//
// Returns vectorstore.Store interface to enforce abstraction.
func NewStore(filePath, collection string) (vectorstore.Store, error) {
	return open(filePath, collection, false)
}

// NewMemoryStore creates a pure in-memory store for testing.
func NewMemoryStore(collection string) (vectorstore.Store, error) {
	return open("", collection, true)
}

func open(filePath, collection string, inMemory bool) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("badger: collection name is required")
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:         db,
		collection: collection,
		logger:     slog.Default().With("component", "badger-store", "collection", collection),
	}, nil
}

// Close closes the underlying BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx executes a function within a BadgerDB transaction and commits it
// when isWrite is set and fn succeeds.
func (s *Store) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := s.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

// Collections lists the names of all collections in the database.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	if s.db.IsClosed() {
		return nil, vectorstore.ErrStoreClosed
	}

	var names []string
	err := s.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			names = append(names, strings.TrimPrefix(key, collectionPrefix+":"))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// CreateCollection writes the collection manifest with the given dimension.
// Returns vectorstore.ErrCollectionExists if a manifest is already present;
// badger's transaction conflict detection turns a concurrent double-create
// into that same error for the loser.
func (s *Store) CreateCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("badger: invalid dimension %d", dimension)
	}

	key := makeCollectionKey(s.collection)
	err := s.withTx(func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", vectorstore.ErrCollectionExists, s.collection)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return tx.Set(key, encodeDimension(dimension))
	}, true)
	if err != nil {
		if err == badger.ErrConflict {
			return fmt.Errorf("%w: %s", vectorstore.ErrCollectionExists, s.collection)
		}
		return err
	}

	s.logger.Info("created collection", "dimension", dimension)
	return nil
}

// dimension reads the collection manifest within a transaction.
func (s *Store) dimension(tx *badger.Txn) (int, error) {
	item, err := tx.Get(makeCollectionKey(s.collection))
	if err == badger.ErrKeyNotFound {
		return 0, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, s.collection)
	}
	if err != nil {
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		dim = decodeDimension(val)
		return nil
	})
	return dim, err
}

// Upsert writes the records in one transaction. Every vector is checked
// against the collection dimension before anything is written, so a
// mismatched batch leaves the store untouched.
func (s *Store) Upsert(ctx context.Context, records []*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	if s.db.IsClosed() {
		return vectorstore.ErrStoreClosed
	}

	return s.withTx(func(tx *badger.Txn) error {
		dim, err := s.dimension(tx)
		if err != nil {
			return err
		}

		for _, record := range records {
			if len(record.Vector) != dim {
				return fmt.Errorf("%w: collection %s expects %d, got %d (chunk %d)",
					vectorstore.ErrDimensionMismatch, s.collection, dim, len(record.Vector), record.Id)
			}
		}

		for _, record := range records {
			if err := tx.Set(makeChunkKey(s.collection, record.Id), vectorstore.MarshalChunkRecord(record)); err != nil {
				return err
			}
			if err := tx.Set(makeTickerKey(s.collection, record.Ticker, record.Id), nil); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// Search scans the collection, scoring every matching record by cosine
// similarity. Results are ordered by descending score; the sort is stable so
// ties keep their scan order within one call.
func (s *Store) Search(ctx context.Context, vector []float32, query vectorstore.Query) ([]*core.ScoredChunk, error) {
	if s.db.IsClosed() {
		return nil, vectorstore.ErrStoreClosed
	}

	var results []*core.ScoredChunk
	err := s.withTx(func(tx *badger.Txn) error {
		if _, err := s.dimension(tx); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(s.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.ChunkRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = vectorstore.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			if query.Ticker != "" && record.Ticker != query.Ticker {
				continue
			}
			if query.Section != "" && record.Section != query.Section {
				continue
			}
			if len(record.Vector) == 0 {
				continue
			}

			score := cosineSimilarity(vector, record.Vector)
			if query.ScoreThreshold > 0 && score < query.ScoreThreshold {
				continue
			}
			results = append(results, &core.ScoredChunk{Record: record, Score: score})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// Iterate scans the collection in key order, delivering records to fn in
// batches of at most batchSize. fn runs outside the read transaction's
// callback stack but before Iterate returns.
func (s *Store) Iterate(ctx context.Context, batchSize int, fn func([]*core.ChunkRecord) error) error {
	if s.db.IsClosed() {
		return vectorstore.ErrStoreClosed
	}
	if batchSize < 1 {
		batchSize = 1
	}

	var batches [][]*core.ChunkRecord
	err := s.withTx(func(tx *badger.Txn) error {
		if _, err := s.dimension(tx); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(s.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var batch []*core.ChunkRecord
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.ChunkRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = vectorstore.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			batch = append(batch, record)
			if len(batch) == batchSize {
				batches = append(batches, batch)
				batch = nil
			}
		}
		if len(batch) > 0 {
			batches = append(batches, batch)
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByTicker removes every record for the ticker, and its index entries,
// in one transaction. An absent ticker deletes nothing and succeeds.
func (s *Store) DeleteByTicker(ctx context.Context, ticker string) error {
	if s.db.IsClosed() {
		return vectorstore.ErrStoreClosed
	}

	err := s.withTx(func(tx *badger.Txn) error {
		// Collect first; deleting while iterating the same prefix is undefined.
		var ids []core.ChunkID
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeTickerPrefix(s.collection, ticker)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, idFromTickerKey(iter.Item().Key()))
		}
		iter.Close()

		for _, id := range ids {
			if err := tx.Delete(makeChunkKey(s.collection, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeTickerKey(s.collection, ticker, id)); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		s.logger.Error("delete by ticker failed", "ticker", ticker, "err", err)
		return err
	}

	s.logger.Info("deleted all chunks for ticker", "ticker", ticker)
	return nil
}

// CollectionInfo counts the collection's records. Every stored record carries
// a vector, so the point and vector counts coincide.
func (s *Store) CollectionInfo(ctx context.Context) (*vectorstore.CollectionInfo, error) {
	if s.db.IsClosed() {
		return nil, vectorstore.ErrStoreClosed
	}

	var count uint64
	err := s.withTx(func(tx *badger.Txn) error {
		if _, err := s.dimension(tx); err != nil {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(s.collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return &vectorstore.CollectionInfo{
		Name:         s.collection,
		PointsCount:  count,
		VectorsCount: count,
		Status:       "green",
	}, nil
}

// HealthCheck verifies the database is open and readable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return vectorstore.ErrStoreClosed
	}
	_, err := s.Collections(ctx)
	return err
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for zero-magnitude or mismatched-length inputs.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
