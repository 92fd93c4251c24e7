package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDeriveChunkID_Deterministic(t *testing.T) {
	meta := ChunkMetadata{Ticker: "ACME", Section: "MD&A"}
	text := "Revenue grew 12% YoY driven by strong subscription demand"

	id1 := DeriveChunkID(text, meta)
	id2 := DeriveChunkID(text, meta)
	assert.Equal(t, id1, id2)
	assert.NotZero(t, id1)
}

func TestDeriveChunkID_DistinguishesInputs(t *testing.T) {
	meta := ChunkMetadata{Ticker: "ACME", Section: "MD&A"}

	a := DeriveChunkID("Revenue grew 12% YoY", meta)
	b := DeriveChunkID("Cash reserves declined", meta)
	assert.NotEqual(t, a, b)

	c := DeriveChunkID("Revenue grew 12% YoY", ChunkMetadata{Ticker: "GLOBEX", Section: "MD&A"})
	assert.NotEqual(t, a, c)

	d := DeriveChunkID("Revenue grew 12% YoY", ChunkMetadata{Ticker: "ACME", Section: "Liquidity"})
	assert.NotEqual(t, a, d)
}

func TestDeriveChunkID_EmptyMetadata(t *testing.T) {
	// Missing ticker/section must not prevent ID derivation.
	id := DeriveChunkID("some filing text", ChunkMetadata{})
	assert.NotZero(t, id)
	assert.Equal(t, id, DeriveChunkID("some filing text", ChunkMetadata{}))
}

func TestDeriveChunkID_OnlyPrefixParticipates(t *testing.T) {
	meta := ChunkMetadata{Ticker: "ACME", Section: "Risk Factors"}
	prefix := strings.Repeat("x", 100)

	// Texts identical in the first 100 characters share an identity; the
	// later upsert replaces the earlier record rather than duplicating it.
	a := DeriveChunkID(prefix+" tail one", meta)
	b := DeriveChunkID(prefix+" tail two", meta)
	assert.Equal(t, a, b)

	c := DeriveChunkID(prefix[:99]+"y tail", meta)
	assert.NotEqual(t, a, c)
}

func TestDeriveChunkID_PrefixCountsCharactersNotBytes(t *testing.T) {
	meta := ChunkMetadata{Ticker: "ACME", Section: "MD&A"}

	// 40 three-byte runes: past 100 bytes but well under 100 characters,
	// so the whole text participates and the tails must distinguish IDs.
	base := strings.Repeat("財", 40)
	a := DeriveChunkID(base+"X", meta)
	b := DeriveChunkID(base+"Y", meta)
	assert.NotEqual(t, a, b)

	// At 100 characters the cut falls on a rune boundary and tails beyond
	// it stop mattering.
	long := strings.Repeat("財", 100)
	c := DeriveChunkID(long+"X", meta)
	d := DeriveChunkID(long+"Y", meta)
	assert.Equal(t, c, d)
}

func TestNewChunkRecord(t *testing.T) {
	now := time.Now().UTC()
	meta := ChunkMetadata{
		Ticker:     "ACME",
		Section:    "MD&A",
		FiscalYear: intPtr(2023),
		Page:       intPtr(42),
		ChunkIndex: intPtr(7),
	}

	record := NewChunkRecord("Revenue grew 12% YoY", meta, now)
	assert.Equal(t, DeriveChunkID("Revenue grew 12% YoY", meta), record.Id)
	assert.Equal(t, "ACME", record.Ticker)
	assert.Equal(t, "MD&A", record.Section)
	assert.Equal(t, 2023, *record.FiscalYear)
	assert.Equal(t, now, record.IngestedAt)
	assert.Empty(t, record.Vector)
	assert.Equal(t, meta, record.Metadata())
}

func TestChunkRecordMUS_RoundTrip(t *testing.T) {
	record := ChunkRecord{
		Id:         DeriveChunkID("text", ChunkMetadata{Ticker: "ACME"}),
		Vector:     []float32{0.25, -0.5, 0.75},
		Text:       "Liquidity remains adequate for the next twelve months",
		Ticker:     "ACME",
		Section:    "Liquidity",
		FiscalYear: intPtr(2024),
		ChunkIndex: intPtr(0),
		IngestedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	buf := make([]byte, ChunkRecordMUS.Size(record))
	n := ChunkRecordMUS.Marshal(record, buf)
	assert.Equal(t, len(buf), n)

	decoded, n, err := ChunkRecordMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, record, decoded)
}

func TestChunkRecordMUS_NilOptionals(t *testing.T) {
	record := ChunkRecord{
		Id:         1,
		Text:       "chunk",
		IngestedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	buf := make([]byte, ChunkRecordMUS.Size(record))
	ChunkRecordMUS.Marshal(record, buf)

	decoded, _, err := ChunkRecordMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Nil(t, decoded.FiscalYear)
	assert.Nil(t, decoded.Page)
	assert.Nil(t, decoded.ChunkIndex)
}
