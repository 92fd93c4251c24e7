package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateChunkRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		record := NewChunkRecord("Revenue grew 12% YoY", ChunkMetadata{Ticker: "ACME"}, time.Now().UTC())
		assert.NoError(t, ValidateChunkRecord(record))
	})

	t.Run("empty ticker and section allowed", func(t *testing.T) {
		record := NewChunkRecord("unattributed text", ChunkMetadata{}, time.Now().UTC())
		assert.NoError(t, ValidateChunkRecord(record))
	})

	t.Run("nil record", func(t *testing.T) {
		err := ValidateChunkRecord(nil)
		assert.ErrorIs(t, err, ErrInvalidChunk)
	})

	t.Run("empty text", func(t *testing.T) {
		record := NewChunkRecord("", ChunkMetadata{Ticker: "ACME"}, time.Now().UTC())
		err := ValidateChunkRecord(record)
		assert.ErrorIs(t, err, ErrInvalidChunk)
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("future timestamp", func(t *testing.T) {
		record := NewChunkRecord("text", ChunkMetadata{}, time.Now().Add(time.Hour))
		err := ValidateChunkRecord(record)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})
}
