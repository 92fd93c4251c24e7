// Package qdrant implements vectorstore.Store against a Qdrant server's
// REST API. It assumes cosine distance for all collections it creates.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/filingvec/vectorstore"
)

const defaultTimeout = 30 * time.Second

// Config holds connection details for a Qdrant store.
type Config struct {
	// URL is the base URL of the Qdrant server, e.g. "http://localhost:6333".
	URL string

	// APIKey is sent as the api-key header when non-empty.
	APIKey string

	// Collection is the name of the collection this store is bound to.
	Collection string

	// Timeout bounds every HTTP call. Defaults to 30s.
	Timeout time.Duration
}

// Store is a vectorstore.Store backed by a Qdrant server.
type Store struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
	logger     *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore creates a Qdrant-backed store. It does not contact the server;
// reachability is verified by HealthCheck or the first operation.
//
// Returns vectorstore.Store interface to enforce abstraction.
func NewStore(cfg Config) (vectorstore.Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: URL is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: Collection is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Store{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant-store"),
	}, nil
}

// Close releases the HTTP client's idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// statusError carries the HTTP status of a failed Qdrant call so callers can
// map conflict responses onto sentinel errors.
type statusError struct {
	method  string
	path    string
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("qdrant %s %s: %d: %s", e.method, e.path, e.code, e.message)
	}
	return fmt.Sprintf("qdrant %s %s: %d", e.method, e.path, e.code)
}

// doJSON issues one request against the Qdrant API. A non-nil body is sent as
// JSON; a non-nil out receives the decoded response. Non-2xx responses are
// returned as *statusError with Qdrant's error description when present.
func (s *Store) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var envelope struct {
			Status struct {
				Error string `json:"error"`
			} `json:"status"`
		}
		// Best effort; the status code alone is enough to classify.
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &envelope)
		return &statusError{method: method, path: path, code: resp.StatusCode, message: envelope.Status.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("qdrant: decoding response: %w", err)
		}
	}
	return nil
}
