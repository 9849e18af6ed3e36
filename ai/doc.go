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


// Package ai provides abstractions for the AI services used in Lectern.
//
// This package defines interfaces for text embeddings and chat completions.
// It follows the dependency inversion principle, allowing the ingestion
// pipeline and the answer assembler to depend on abstractions rather than
// concrete implementations.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces chat completions
//   - Provider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes three implementation sub-packages:
//
//   - ai/ollama: Production implementation against a local Ollama server
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Production constructors (ollama.NewProvider, openai.NewProvider) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := ollama.NewProvider(config)  // returns ai.Provider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockGenerator)
// return CONCRETE types to enable test assertions and behavior injection.
//
// # Vector Hygiene
//
// Embedding vectors feed a cosine-similarity index, so the package also
// carries vector helpers: NormalizeVector, ValidateVector and Stats. Wrap any
// Embedder in a NormalizingEmbedder to guarantee unit-length outputs
// regardless of what the model returns.
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithBaseURL("http://localhost:11434"),
//	    ai.WithChatModel("llama3.1:8b"),
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	)
//	provider, err := ollama.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "mitochondria structure")
//	answer, err := provider.Generator().Generate(ctx, systemPrompt, userPrompt)
package ai
