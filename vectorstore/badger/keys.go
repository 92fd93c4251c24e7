package badger

import (
	"encoding/binary"

	"github.com/poiesic/filingvec/core"
)

// Key prefixes for the badger keyspace. Collection manifests, chunk records,
// and the ticker index live under distinct prefixes so prefix scans never
// cross entry kinds.
const (
	collectionPrefix  = "veccol"
	chunkPrefix       = "chunk"
	chunkTickerPrefix = "chuntick"
)

// makeCollectionKey generates the manifest key for a collection.
// The manifest value is the collection's vector dimension.
func makeCollectionKey(collection string) []byte {
	return []byte(collectionPrefix + ":" + collection)
}

// makeChunkKey generates the record key for a chunk by ID.
// Format: prefix:collection:id (ID in BigEndian so IDs sort lexicographically)
func makeChunkKey(collection string, id core.ChunkID) []byte {
	prefix := []byte(chunkPrefix + ":" + collection + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeChunkPrefix generates the scan prefix covering every chunk record in
// a collection.
func makeChunkPrefix(collection string) []byte {
	return []byte(chunkPrefix + ":" + collection + ":")
}

// makeTickerKey generates a composite key for the ticker index.
// Format: prefix:collection:len(ticker):ticker:id. The ticker is
// length-prefixed because it is an opaque caller value; without the length a
// scan for ticker "A" would also cover keys of ticker "A:B".
func makeTickerKey(collection, ticker string, id core.ChunkID) []byte {
	prefix := makeTickerPrefix(collection, ticker)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTickerPrefix generates the scan prefix covering one ticker's index
// entries in a collection.
func makeTickerPrefix(collection, ticker string) []byte {
	head := []byte(chunkTickerPrefix + ":" + collection + ":")
	buf := make([]byte, len(head)+2+len(ticker))
	offset := copy(buf, head)
	binary.BigEndian.PutUint16(buf[offset:], uint16(len(ticker)))
	copy(buf[offset+2:], ticker)
	return buf
}

// idFromTickerKey recovers the chunk ID from a ticker index key.
func idFromTickerKey(key []byte) core.ChunkID {
	return core.ChunkID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// encodeDimension serializes a collection's vector dimension for its manifest.
func encodeDimension(dimension int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dimension))
	return buf
}

// decodeDimension deserializes a collection manifest value.
func decodeDimension(data []byte) int {
	if len(data) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(data))
}
