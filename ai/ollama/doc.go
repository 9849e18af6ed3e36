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


// Package ollama provides AI service implementations backed by a local
// Ollama server.
//
// This package implements the ai.Provider interface using the langchaingo
// Ollama client against the server's native API. Chat completions and
// embeddings use separate clients because Ollama binds one model per client.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithBaseURL("http://localhost:11434"),
//	    ai.WithChatModel("llama3.1:8b"),
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	)
//
//	provider, err := ollama.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
//	answer, err := provider.Generator().Generate(ctx, system, user)
package ollama
