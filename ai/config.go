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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// BaseURL is the base URL of the model server.
	// Example: "http://localhost:11434" for a local Ollama instance.
	BaseURL string

	// APIKey authenticates against hosted OpenAI-compatible services.
	// Leave empty for local servers that don't require authentication.
	APIKey string

	// ChatModel is the model identifier used for chat completions.
	// Example: "llama3.1:8b", "gpt-4o-mini"
	ChatModel string

	// EmbeddingModel is the model identifier used for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// VectorSize is the embedding dimension the model produces. It must
	// match the vector index collection or indexing fails loudly.
	VectorSize int

	// Temperature controls sampling randomness for chat completions.
	Temperature float64

	// TopP controls nucleus sampling for chat completions.
	TopP float64

	// MaxTokens caps the completion length. Zero lets the server decide.
	MaxTokens int

	// Timeout bounds each model call.
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the model server base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAPIKey sets the API key for hosted services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithChatModel sets the chat completion model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithVectorSize sets the expected embedding dimension.
func WithVectorSize(size int) ConfigOption {
	return func(c *Config) {
		c.VectorSize = size
	}
}

// WithSampling sets temperature and top-p together.
func WithSampling(temperature, topP float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
		c.TopP = topP
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// DefaultConfig returns a Config with sensible defaults for a local Ollama
// instance.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:11434",
		ChatModel:      "llama3.1:8b",
		EmbeddingModel: "nomic-embed-text",
		VectorSize:     768,
		Temperature:    0.2,
		TopP:           0.9,
		MaxTokens:      1024,
		Timeout:        120 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithBaseURL("http://localhost:11434"),
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// OpenAIBaseURL returns the base URL in the canonical form OpenAI-compatible
// APIs expect, with the /v1 suffix added if missing. Ollama's native API uses
// the bare base URL, so this is applied only by the openai provider.
func (c *Config) OpenAIBaseURL() string {
	url := strings.TrimSuffix(c.BaseURL, "/")
	if url == "" {
		return url
	}
	if !strings.HasSuffix(url, "/v1") {
		url += "/v1"
	}
	return url
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("ai config: BaseURL is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.VectorSize < 1 {
		return errors.New("ai config: VectorSize must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.TopP < 0 || c.TopP > 1 {
		return errors.New("ai config: TopP must be between 0 and 1")
	}
	return nil
}
