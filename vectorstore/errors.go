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


package vectorstore

import "errors"

var (
	// ErrCollectionExists indicates the collection is already present.
	// Idempotent ensure sequences treat this as success.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound indicates the store's collection has not been
	// created yet.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates a vector's length disagrees with the
	// collection's configured dimension. This signals configuration drift
	// between the embedding model and an existing collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStoreClosed indicates the storage backend is closed.
	ErrStoreClosed = errors.New("store is closed")

	// ErrSerializationFailed indicates a record could not be decoded from
	// its stored representation.
	ErrSerializationFailed = errors.New("serialization failed")
)
