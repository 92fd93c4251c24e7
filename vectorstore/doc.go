// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package vectorstore provides the vector storage abstraction layer for
// filingvec.
//
// This package defines the Store interface that decouples the ingestion
// pipeline and retrieval engine from any particular vector database. Two
// backends are provided:
//
//   - vectorstore/qdrant: a Qdrant REST client for production deployments
//   - vectorstore/badger: an embedded BadgerDB backend for single-node
//     deployments and tests (supports a pure in-memory mode)
//
// # Constructor Return Type Pattern
//
// Public constructors return the vectorstore.Store interface to enforce
// abstraction and keep backends swappable:
//
//	store, err := qdrant.NewStore(cfg)   // returns vectorstore.Store
//	store, err := badger.NewStore(path, "sec_filings")
//
// # Collections
//
// A Store is bound to one named collection. The collection's vector dimension
// is fixed at creation time (from the embedding provider's probed output size)
// and every subsequently upserted vector must match it; mismatches fail with
// ErrDimensionMismatch before anything is written. Creation is modeled as an
// idempotent check-then-create sequence: CreateCollection returns
// ErrCollectionExists when racing another initializer, which callers treat
// as success.
//
// # Thread Safety
//
// All Store implementations must be thread-safe. Correctness under concurrent
// upserts to the same ID relies on the backend's own concurrency control;
// last-write-wins is acceptable because IDs are content-derived and a
// re-write is semantically a no-op.
//
// # Context Support
//
// All Store methods accept context.Context for cancellation and timeout
// support.
package vectorstore
