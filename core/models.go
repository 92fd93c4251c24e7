package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ChunkID is a unique identifier for a stored filing chunk.
// It is derived from chunk content so that re-ingesting identical
// content overwrites the existing record instead of duplicating it.
type ChunkID uint64

// idPrefixLen is how many characters of chunk text participate in ID
// derivation.
const idPrefixLen = 100

// DeriveChunkID generates a deterministic ID from a chunk's ticker, section,
// and the first 100 characters of its text, using BLAKE2b hashing. The same
// inputs always produce the same ID, across process restarts. Missing ticker
// or section values are treated as empty strings.
func DeriveChunkID(text string, meta ChunkMetadata) ChunkID {
	prefix := text
	if runes := []rune(prefix); len(runes) > idPrefixLen {
		prefix = string(runes[:idPrefixLen])
	}
	content := meta.Ticker + "_" + meta.Section + "_" + prefix

	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(content))
	sum := h.Sum(nil)
	return ChunkID(binary.LittleEndian.Uint64(sum))
}

// ChunkMetadata carries the structured fields attached to a chunk at
// ingestion time. Ticker and Section double as the search filter keys.
// FiscalYear, Page, and ChunkIndex are optional; nil means not recorded.
type ChunkMetadata struct {
	Ticker     string
	Section    string
	FiscalYear *int
	Page       *int
	ChunkIndex *int
}

// ChunkRecord is the atomic unit stored in the vector index: a span of
// filing text, its embedding vector, and the metadata used for filtering.
// Records are immutable once written except for full replacement via
// re-upsert under the same derived ID.
type ChunkRecord struct {
	Id         ChunkID
	Vector     []float32
	Text       string
	Ticker     string
	Section    string
	FiscalYear *int
	Page       *int
	ChunkIndex *int
	IngestedAt time.Time
}

// Metadata returns the record's metadata fields as a ChunkMetadata.
func (r *ChunkRecord) Metadata() ChunkMetadata {
	return ChunkMetadata{
		Ticker:     r.Ticker,
		Section:    r.Section,
		FiscalYear: r.FiscalYear,
		Page:       r.Page,
		ChunkIndex: r.ChunkIndex,
	}
}

// NewChunkRecord assembles a chunk record from text and metadata,
// deriving its content-based ID and stamping the ingestion time.
// The vector is left empty; the ingestion pipeline populates it.
func NewChunkRecord(text string, meta ChunkMetadata, ingestedAt time.Time) *ChunkRecord {
	return &ChunkRecord{
		Id:         DeriveChunkID(text, meta),
		Text:       text,
		Ticker:     meta.Ticker,
		Section:    meta.Section,
		FiscalYear: meta.FiscalYear,
		Page:       meta.Page,
		ChunkIndex: meta.ChunkIndex,
		IngestedAt: ingestedAt,
	}
}

// ScoredChunk is a chunk record paired with its similarity score from a search.
type ScoredChunk struct {
	Record *ChunkRecord
	Score  float32
}
