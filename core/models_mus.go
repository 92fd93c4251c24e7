package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types. These are written against the mus-go
// primitive serializers directly; field order is part of the stored format and
// must not change without a storage migration.
var (
	// ChunkIDMUS serializes ChunkID values.
	ChunkIDMUS = chunkIDSer{}

	// ChunkRecordMUS serializes ChunkRecord values.
	ChunkRecordMUS = chunkRecordSer{}

	vectorSer = ord.NewSliceSer[float32](raw.Float32)
	intPtrSer = ord.NewPtrSer[int](varint.Int)
)

type chunkIDSer struct{}

func (chunkIDSer) Marshal(id ChunkID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (chunkIDSer) Unmarshal(bs []byte) (id ChunkID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ChunkID(v), n, err
}

func (chunkIDSer) Size(id ChunkID) (size int) {
	return varint.Uint64.Size(uint64(id))
}

func (chunkIDSer) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type chunkRecordSer struct{}

func (chunkRecordSer) Marshal(r ChunkRecord, bs []byte) (n int) {
	n = ChunkIDMUS.Marshal(r.Id, bs)
	n += vectorSer.Marshal(r.Vector, bs[n:])
	n += ord.String.Marshal(r.Text, bs[n:])
	n += ord.String.Marshal(r.Ticker, bs[n:])
	n += ord.String.Marshal(r.Section, bs[n:])
	n += intPtrSer.Marshal(r.FiscalYear, bs[n:])
	n += intPtrSer.Marshal(r.Page, bs[n:])
	n += intPtrSer.Marshal(r.ChunkIndex, bs[n:])
	n += varint.Int64.Marshal(r.IngestedAt.UnixMilli(), bs[n:])
	return n
}

func (chunkRecordSer) Unmarshal(bs []byte) (r ChunkRecord, n int, err error) {
	var n1 int
	r.Id, n, err = ChunkIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	r.Vector, n1, err = vectorSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Ticker, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Section, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.FiscalYear, n1, err = intPtrSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Page, n1, err = intPtrSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.ChunkIndex, n1, err = intPtrSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var millis int64
	millis, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.IngestedAt = time.UnixMilli(millis).UTC()
	return
}

func (chunkRecordSer) Size(r ChunkRecord) (size int) {
	size = ChunkIDMUS.Size(r.Id)
	size += vectorSer.Size(r.Vector)
	size += ord.String.Size(r.Text)
	size += ord.String.Size(r.Ticker)
	size += ord.String.Size(r.Section)
	size += intPtrSer.Size(r.FiscalYear)
	size += intPtrSer.Size(r.Page)
	size += intPtrSer.Size(r.ChunkIndex)
	size += varint.Int64.Size(r.IngestedAt.UnixMilli())
	return size
}

func (chunkRecordSer) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ChunkIDMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = vectorSer.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < 3; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for i := 0; i < 3; i++ {
		n1, err = intPtrSer.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}
