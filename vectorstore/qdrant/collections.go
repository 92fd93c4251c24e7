package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/poiesic/filingvec/vectorstore"
)

// Collections lists the names of all collections on the server.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

// CreateCollection creates the store's collection with the given dimension
// and cosine distance. A conflicting concurrent creation surfaces as
// vectorstore.ErrCollectionExists, which idempotent initializers treat as
// success.
func (s *Store) CreateCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := s.doJSON(ctx, http.MethodPut, "/collections/"+s.collection, body, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusConflict {
			return fmt.Errorf("%w: %s", vectorstore.ErrCollectionExists, s.collection)
		}
		return err
	}
	s.logger.Info("created collection", "collection", s.collection, "dimension", dimension)
	return nil
}

// CollectionInfo reports point/vector counts and status for the collection.
func (s *Store) CollectionInfo(ctx context.Context) (*vectorstore.CollectionInfo, error) {
	var resp struct {
		Result struct {
			Status       string  `json:"status"`
			PointsCount  uint64  `json:"points_count"`
			VectorsCount *uint64 `json:"vectors_count"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodGet, "/collections/"+s.collection, nil, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, s.collection)
		}
		return nil, err
	}

	info := &vectorstore.CollectionInfo{
		Name:        s.collection,
		PointsCount: resp.Result.PointsCount,
		Status:      resp.Result.Status,
	}
	// Servers running without named vectors omit vectors_count; fall back
	// to the point count, which is what it equals for this schema.
	if resp.Result.VectorsCount != nil {
		info.VectorsCount = *resp.Result.VectorsCount
	} else {
		info.VectorsCount = resp.Result.PointsCount
	}
	return info, nil
}

// HealthCheck verifies the server is reachable by listing collections.
// It never touches the embedding path.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.Collections(ctx); err != nil {
		s.logger.Error("health check failed", "err", err)
		return err
	}
	return nil
}
