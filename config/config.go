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

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// QdrantSettings configures the Qdrant backend.
type QdrantSettings struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
}

// URL returns the Qdrant base URL.
func (q QdrantSettings) URL() string {
	return fmt.Sprintf("http://%s:%d", q.Host, q.Port)
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Host  string
	Model string
}

// StoreSettings selects and configures the vector store backend.
type StoreSettings struct {
	// Backend is "qdrant" or "badger".
	Backend string

	// BadgerPath is the on-disk location of the badger backend.
	BadgerPath string
}

// Settings holds all application configuration.
type Settings struct {
	Qdrant     QdrantSettings
	Embedding  EmbeddingSettings
	Store      StoreSettings
	SQLitePath string

	BatchSize      int
	MaxRetries     int
	TimeoutSeconds int
	LogLevel       slog.Level
}

// Load reads settings from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Settings, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	s := &Settings{
		Qdrant: QdrantSettings{
			Host:       envString("QDRANT_HOST", "localhost"),
			Collection: envString("QDRANT_COLLECTION_NAME", "sec_filings"),
			APIKey:     envString("QDRANT_API_KEY", ""),
		},
		Embedding: EmbeddingSettings{
			Host:  envString("EMBEDDING_HOST", "http://localhost:11434/v1"),
			Model: envString("EMBEDDING_MODEL", "all-minilm"),
		},
		Store: StoreSettings{
			Backend:    envString("VECTOR_BACKEND", "qdrant"),
			BadgerPath: envString("BADGER_PATH", "filingvec.db"),
		},
		SQLitePath: envString("SQLITE_PATH", "filings.db"),
	}

	var err error
	if s.Qdrant.Port, err = envInt("QDRANT_PORT", 6333); err != nil {
		return nil, err
	}
	if s.BatchSize, err = envInt("CHUNK_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if s.MaxRetries, err = envInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if s.TimeoutSeconds, err = envInt("TIMEOUT_SECONDS", 120); err != nil {
		return nil, err
	}

	if s.LogLevel, err = ParseLogLevel(envString("LOG_LEVEL", "INFO")); err != nil {
		return nil, err
	}

	switch s.Store.Backend {
	case "qdrant", "badger":
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be qdrant or badger, got %q", s.Store.Backend)
	}
	if s.BatchSize < 1 {
		return nil, fmt.Errorf("CHUNK_BATCH_SIZE must be positive, got %d", s.BatchSize)
	}

	return s, nil
}

// ParseLogLevel maps a level name onto its slog level. WARNING and CRITICAL
// are accepted as aliases so existing deployment configs keep working.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR", "CRITICAL":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", name)
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}
