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

// Package search provides semantic and hybrid retrieval over filing chunks.
//
// The Engine type implements two retrieval modes:
//   - Semantic search: embed the query, run filtered cosine similarity against
//     the vector store, and drop results below the score threshold.
//   - Hybrid search: over-fetch semantic candidates, then keep only those whose
//     text contains at least one of the given keywords.
//
// Hybrid search deliberately does not re-fetch when the keyword filter thins
// the candidate set below the requested size; the over-fetch multiplier is a
// fixed precision/latency tradeoff and short result sets are expected.
package search
