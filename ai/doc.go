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


// Package ai provides abstractions for the embedding services used in filingvec.
//
// This package defines the interfaces for converting filing text into dense
// vector embeddings. It follows the dependency inversion principle, allowing
// the ingestion pipeline and retrieval engine to depend on abstractions rather
// than concrete implementations.
//
// # Design Principles
//
// The package is designed around two interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Provider: Aggregates embedding services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return INTERFACE
// types to enforce abstraction and prevent accidental coupling to concrete
// implementations. Test utility constructors (mock.NewMockEmbedder) return
// CONCRETE types to enable test assertions and behavior injection.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("all-minilm"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Revenue grew 12% YoY")
//
// # Dimensionality
//
// The embedding dimension is a property of the configured model and is
// discovered at runtime by embedding a sentinel string; the vector store
// fixes a collection's dimension from that probe at creation time.
package ai
