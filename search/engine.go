package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/filingvec/ai"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
)

const (
	// DefaultTopK is the number of results returned when Options.TopK is unset.
	DefaultTopK = 5

	// DefaultScoreThreshold is the similarity floor used by DefaultOptions.
	DefaultScoreThreshold = 0.7

	// overFetchFactor is the multiplier applied to TopK when gathering
	// candidates for hybrid search. Fixed; no second fetch happens when the
	// keyword filter thins the set below TopK.
	overFetchFactor = 2
)

// Options narrows and sizes a search.
type Options struct {
	// Ticker restricts results to one company when non-empty.
	Ticker string

	// Section restricts results to one filing section when non-empty.
	Section string

	// TopK caps the number of results. Values < 1 mean DefaultTopK.
	TopK int

	// ScoreThreshold drops results scoring below it. Zero disables the floor.
	// Ignored by HybridSearch, which thresholds by keyword presence instead.
	ScoreThreshold float32
}

// DefaultOptions returns the options production callers start from.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, ScoreThreshold: DefaultScoreThreshold}
}

// Engine executes semantic and hybrid retrieval against the vector store.
type Engine struct {
	embedder ai.Embedder
	store    vectorstore.Store
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new retrieval engine.
func NewEngine(embedder ai.Embedder, store vectorstore.Store, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	e := &Engine{
		embedder: embedder,
		store:    store,
		logger:   slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Search embeds the query and returns the nearest chunks under the options'
// filters, ordered by descending similarity. No matches above the threshold
// yields an empty slice, not an error.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]*core.ScoredChunk, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	topK := opts.TopK
	if topK < 1 {
		topK = DefaultTopK
	}

	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		e.logger.Error("error embedding query", "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.store.Search(ctx, vector, vectorstore.Query{
		Ticker:         opts.Ticker,
		Section:        opts.Section,
		Limit:          topK,
		ScoreThreshold: opts.ScoreThreshold,
	})
	if err != nil {
		e.logger.Error("error searching store",
			"ticker", opts.Ticker, "section", opts.Section, "err", err)
		return nil, fmt.Errorf("searching store: %w", err)
	}

	return results, nil
}

// HybridSearch runs a two-stage filter-then-rank retrieval: a semantic search
// over-fetching 2x TopK candidates with no score threshold, then a keyword
// pass keeping only candidates whose text contains at least one keyword
// (case-insensitive, OR across keywords). The survivors are truncated to TopK
// in their semantic order. The result may hold fewer than TopK chunks.
func (e *Engine) HybridSearch(ctx context.Context, query string, keywords []string, opts Options) ([]*core.ScoredChunk, error) {
	return e.HybridSearchWithMonitor(ctx, query, keywords, opts, nil)
}

// HybridSearchWithMonitor is HybridSearch with stage callbacks for observers.
func (e *Engine) HybridSearchWithMonitor(ctx context.Context, query string, keywords []string, opts Options, monitor Monitor) ([]*core.ScoredChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	topK := opts.TopK
	if topK < 1 {
		topK = DefaultTopK
	}
	monitor.Start(query, keywords)

	candidates, err := e.Search(ctx, query, Options{
		Ticker:  opts.Ticker,
		Section: opts.Section,
		TopK:    topK * overFetchFactor,
	})
	if err != nil {
		return nil, err
	}
	monitor.AfterSemanticStage(candidates)

	results := make([]*core.ScoredChunk, 0, topK)
	for _, candidate := range candidates {
		if !containsAnyKeyword(candidate.Record.Text, keywords) {
			continue
		}
		results = append(results, candidate)
		if len(results) == topK {
			break
		}
	}
	monitor.Finish(results)

	return results, nil
}
