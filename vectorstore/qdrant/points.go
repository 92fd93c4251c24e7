package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/vectorstore"
)

// pointPayload is the stored payload schema. Nullable fields serialize as
// JSON null so absent values stay distinguishable from zero.
type pointPayload struct {
	Text       string `json:"text"`
	Ticker     string `json:"ticker"`
	Section    string `json:"section"`
	FiscalYear *int   `json:"fiscal_year"`
	Page       *int   `json:"page"`
	ChunkIndex *int   `json:"chunk_index"`
	IngestedAt string `json:"ingested_at"`
}

type point struct {
	ID      uint64       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

// fieldMatch is a Qdrant equality condition on a payload key.
type fieldMatch struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

func matchCondition(key, value string) fieldMatch {
	var c fieldMatch
	c.Key = key
	c.Match.Value = value
	return c
}

// mustFilter builds the equality filter conjunction for a query.
// Returns nil when neither filter key is set, so the search is unrestricted
// rather than wildcarded.
func mustFilter(ticker, section string) map[string]any {
	var conditions []fieldMatch
	if ticker != "" {
		conditions = append(conditions, matchCondition("ticker", ticker))
	}
	if section != "" {
		conditions = append(conditions, matchCondition("section", section))
	}
	if len(conditions) == 0 {
		return nil
	}
	return map[string]any{"must": conditions}
}

// Upsert writes the records as one wait-for-completion operation.
// Already-present IDs are replaced in full. Dimension mismatches are rejected
// by the server and map onto vectorstore.ErrDimensionMismatch.
func (s *Store) Upsert(ctx context.Context, records []*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     uint64(r.Id),
			Vector: r.Vector,
			Payload: pointPayload{
				Text:       r.Text,
				Ticker:     r.Ticker,
				Section:    r.Section,
				FiscalYear: r.FiscalYear,
				Page:       r.Page,
				ChunkIndex: r.ChunkIndex,
				IngestedAt: r.IngestedAt.UTC().Format(time.RFC3339),
			},
		}
	}

	path := "/collections/" + s.collection + "/points?wait=true"
	err := s.doJSON(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: %s", vectorstore.ErrDimensionMismatch, se.message)
		}
		return err
	}
	return nil
}

// Search returns the nearest points restricted by the query's filters,
// ordered by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, query vectorstore.Query) ([]*core.ScoredChunk, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        query.Limit,
		"with_payload": true,
	}
	if filter := mustFilter(query.Ticker, query.Section); filter != nil {
		body["filter"] = filter
	}
	if query.ScoreThreshold > 0 {
		body["score_threshold"] = query.ScoreThreshold
	}

	var resp struct {
		Result []struct {
			ID      uint64       `json:"id"`
			Score   float32      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	path := "/collections/" + s.collection + "/points/search"
	if err := s.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	results := make([]*core.ScoredChunk, 0, len(resp.Result))
	for _, hit := range resp.Result {
		record := &core.ChunkRecord{
			Id:         core.ChunkID(hit.ID),
			Text:       hit.Payload.Text,
			Ticker:     hit.Payload.Ticker,
			Section:    hit.Payload.Section,
			FiscalYear: hit.Payload.FiscalYear,
			Page:       hit.Payload.Page,
			ChunkIndex: hit.Payload.ChunkIndex,
		}
		if ts, err := time.Parse(time.RFC3339, hit.Payload.IngestedAt); err == nil {
			record.IngestedAt = ts
		}
		results = append(results, &core.ScoredChunk{Record: record, Score: hit.Score})
	}
	return results, nil
}

// Iterate pages through every point in the collection with the scroll API,
// delivering batches of at most batchSize to fn in point-ID order.
func (s *Store) Iterate(ctx context.Context, batchSize int, fn func([]*core.ChunkRecord) error) error {
	if batchSize < 1 {
		batchSize = 1
	}

	path := "/collections/" + s.collection + "/points/scroll"
	var offset any
	for {
		body := map[string]any{
			"limit":        batchSize,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
			return err
		}
		if len(resp.Result.Points) == 0 {
			return nil
		}

		records := make([]*core.ChunkRecord, len(resp.Result.Points))
		for i, p := range resp.Result.Points {
			record := &core.ChunkRecord{
				Id:         core.ChunkID(p.ID),
				Vector:     p.Vector,
				Text:       p.Payload.Text,
				Ticker:     p.Payload.Ticker,
				Section:    p.Payload.Section,
				FiscalYear: p.Payload.FiscalYear,
				Page:       p.Payload.Page,
				ChunkIndex: p.Payload.ChunkIndex,
			}
			if ts, err := time.Parse(time.RFC3339, p.Payload.IngestedAt); err == nil {
				record.IngestedAt = ts
			}
			records[i] = record
		}
		if err := fn(records); err != nil {
			return err
		}

		offset = resp.Result.NextPageOffset
		if offset == nil {
			return nil
		}
	}
}

// DeleteByTicker removes every point whose ticker payload equals the given
// value as one filtered delete. Absent tickers delete nothing and succeed.
func (s *Store) DeleteByTicker(ctx context.Context, ticker string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []fieldMatch{matchCondition("ticker", ticker)},
		},
	}
	path := "/collections/" + s.collection + "/points/delete?wait=true"
	if err := s.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		s.logger.Error("delete by ticker failed", "ticker", ticker, "err", err)
		return err
	}
	s.logger.Info("deleted all chunks for ticker", "ticker", ticker)
	return nil
}
