package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", s.Qdrant.Host)
	assert.Equal(t, 6333, s.Qdrant.Port)
	assert.Equal(t, "sec_filings", s.Qdrant.Collection)
	assert.Equal(t, "http://localhost:6333", s.Qdrant.URL())
	assert.Equal(t, "all-minilm", s.Embedding.Model)
	assert.Equal(t, "qdrant", s.Store.Backend)
	assert.Equal(t, 100, s.BatchSize)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 120, s.TimeoutSeconds)
	assert.Equal(t, slog.LevelInfo, s.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_COLLECTION_NAME", "filings_v2")
	t.Setenv("VECTOR_BACKEND", "badger")
	t.Setenv("CHUNK_BATCH_SIZE", "25")
	t.Setenv("LOG_LEVEL", "debug")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://qdrant.internal:7000", s.Qdrant.URL())
	assert.Equal(t, "filings_v2", s.Qdrant.Collection)
	assert.Equal(t, "badger", s.Store.Backend)
	assert.Equal(t, 25, s.BatchSize)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("QDRANT_PORT", "not-a-number")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad backend", func(t *testing.T) {
		t.Setenv("VECTOR_BACKEND", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad batch size", func(t *testing.T) {
		t.Setenv("CHUNK_BATCH_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"WARN":     slog.LevelWarn,
		"WARNING":  slog.LevelWarn,
		"ERROR":    slog.LevelError,
		"CRITICAL": slog.LevelError,
	}
	for name, want := range cases {
		level, err := ParseLogLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, level, name)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
