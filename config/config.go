package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig indicates a configuration value that cannot be used.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the root configuration object for the whole process.
type Config struct {
	// DataDir is the root of all stored assets, artifacts and the catalog.
	DataDir string `yaml:"data_dir"`

	Logging   Logging   `yaml:"logging"`
	Render    Render    `yaml:"render"`
	OCR       OCR       `yaml:"ocr"`
	Chunking  Chunking  `yaml:"chunking"`
	AI        AI        `yaml:"ai"`
	Qdrant    Qdrant    `yaml:"qdrant"`
	Retrieval Retrieval `yaml:"retrieval"`
	Web       Web       `yaml:"web"`
	Notes     Notes     `yaml:"notes"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

// Logging controls the CLI's slog handler.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Render controls page rasterization.
type Render struct {
	DPI int `yaml:"dpi"`
}

// OCR selects and tunes the OCR engine.
type OCR struct {
	// Engine is one of "auto", "tesseract", "tesseract-text", "stub".
	Engine    string `yaml:"engine"`
	Languages string `yaml:"languages"`

	// CaptionMinChars is the text-length threshold below which a page is
	// flagged as needing captioning.
	CaptionMinChars int `yaml:"caption_min_chars"`

	// FullPageBBox is the synthetic bounding box used for whole-page blocks
	// produced by non-layout engines.
	FullPageBBox [4]float64 `yaml:"full_page_bbox"`

	// PageConcurrency bounds parallel per-page OCR within one asset.
	PageConcurrency int `yaml:"page_concurrency"`
}

// Chunking tunes the layout chunker.
type Chunking struct {
	MaxChunkChars int `yaml:"max_chunk_chars"`
	MinChunkChars int `yaml:"min_chunk_chars"`
	OverlapBlocks int `yaml:"overlap_blocks"`
}

// AI selects the embedding/generation provider.
type AI struct {
	// Provider is "ollama" or "openai".
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	VectorSize     int     `yaml:"vector_size"`
	Temperature    float64 `yaml:"temperature"`
	TopP           float64 `yaml:"top_p"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// APIKey resolves the provider API key from the configured environment
// variable. Empty when unset, which is fine for local servers.
func (a AI) APIKey() string {
	if a.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(a.APIKeyEnv)
}

// Timeout returns the per-call timeout for AI requests.
func (a AI) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Qdrant locates the vector index.
type Qdrant struct {
	URL            string `yaml:"url"`
	Collection     string `yaml:"collection"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UpsertBatch    int    `yaml:"upsert_batch"`
}

// APIKey resolves the Qdrant API key from the configured environment variable.
func (q Qdrant) APIKey() string {
	if q.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(q.APIKeyEnv)
}

// Timeout returns the per-call timeout for vector index requests.
func (q Qdrant) Timeout() time.Duration {
	return time.Duration(q.TimeoutSeconds) * time.Second
}

// Retrieval tunes query-time search.
type Retrieval struct {
	TopK              int     `yaml:"top_k"`
	MinScore          float64 `yaml:"min_score"`
	NeighborWindow    int     `yaml:"neighbor_window"`
	MaxNeighborChunks int     `yaml:"max_neighbor_chunks"`
}

// Web configures the optional web-search fallback.
type Web struct {
	Enabled           bool     `yaml:"enabled"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	Endpoint          string   `yaml:"endpoint"`
	MaxQueries        int      `yaml:"max_queries"`
	MaxResults        int      `yaml:"max_results"`
	SnippetCharBudget int      `yaml:"snippet_char_budget"`
	AllowDomains      []string `yaml:"allow_domains"`
	BlockDomains      []string `yaml:"block_domains"`
	TimeoutSeconds    int      `yaml:"timeout_seconds"`

	// JudgeMinHits/JudgeMinScore are the confidence thresholds below which
	// the fallback judge may send queries to the web.
	JudgeMinHits  int     `yaml:"judge_min_hits"`
	JudgeMinScore float64 `yaml:"judge_min_score"`
}

// APIKey resolves the search API key from the configured environment variable.
func (w Web) APIKey() string {
	if w.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(w.APIKeyEnv)
}

// Timeout returns the per-call timeout for web search requests.
func (w Web) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// Notes tunes study-notes generation.
type Notes struct {
	// TargetChars and MinChars steer how long the model makes the notes.
	TargetChars int `yaml:"target_chars"`
	MinChars    int `yaml:"min_chars"`

	// ContextChars caps the slide text included in the generation prompt.
	ContextChars int `yaml:"context_chars"`

	// MaxChunkChars bounds one notes chunk for embedding.
	MaxChunkChars int `yaml:"max_chunk_chars"`
}

// Pipeline bounds the batch indexing driver.
type Pipeline struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns a configuration suitable for a local setup: Ollama on its
// default port, Qdrant on its default port, data under ./data.
func Default() *Config {
	return &Config{
		DataDir: "data",
		Logging: Logging{Level: "info", Format: "text"},
		Render:  Render{DPI: 144},
		OCR: OCR{
			Engine:          "auto",
			Languages:       "eng",
			CaptionMinChars: 80,
			FullPageBBox:    [4]float64{0, 0, 1, 1},
			PageConcurrency: 4,
		},
		Chunking: Chunking{
			MaxChunkChars: 1000,
			MinChunkChars: 200,
			OverlapBlocks: 1,
		},
		AI: AI{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			ChatModel:      "llama3.1",
			EmbeddingModel: "nomic-embed-text",
			VectorSize:     768,
			Temperature:    0.2,
			TopP:           0.9,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		Qdrant: Qdrant{
			URL:            "http://localhost:6333",
			Collection:     "study_chunks",
			APIKeyEnv:      "QDRANT_API_KEY",
			TimeoutSeconds: 30,
			UpsertBatch:    128,
		},
		Retrieval: Retrieval{
			TopK:              8,
			MinScore:          0.30,
			NeighborWindow:    1,
			MaxNeighborChunks: 6,
		},
		Web: Web{
			Enabled:           false,
			APIKeyEnv:         "SERPAPI_API_KEY",
			Endpoint:          "https://serpapi.com/search",
			MaxQueries:        2,
			MaxResults:        5,
			SnippetCharBudget: 1200,
			TimeoutSeconds:    15,
			JudgeMinHits:      3,
			JudgeMinScore:     0.55,
		},
		Notes: Notes{
			TargetChars:   8000,
			MinChars:      6000,
			ContextChars:  8000,
			MaxChunkChars: 1000,
		},
		Pipeline: Pipeline{Concurrency: 2},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error: the defaults are returned as-is. An unreadable or invalid file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations that would corrupt data or deadlock the
// pipeline. It runs before anything is opened or written.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	}
	if c.Render.DPI <= 0 {
		return fmt.Errorf("%w: render.dpi must be positive, got %d", ErrInvalidConfig, c.Render.DPI)
	}
	if c.Chunking.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: chunking.max_chunk_chars must be positive", ErrInvalidConfig)
	}
	if c.Chunking.MinChunkChars < 0 || c.Chunking.MinChunkChars > c.Chunking.MaxChunkChars {
		return fmt.Errorf("%w: chunking.min_chunk_chars must be in [0, max_chunk_chars]", ErrInvalidConfig)
	}
	if c.Chunking.OverlapBlocks < 0 {
		return fmt.Errorf("%w: chunking.overlap_blocks cannot be negative", ErrInvalidConfig)
	}
	if c.AI.VectorSize <= 0 {
		return fmt.Errorf("%w: ai.vector_size must be positive", ErrInvalidConfig)
	}
	switch c.AI.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("%w: ai.provider must be ollama or openai, got %q", ErrInvalidConfig, c.AI.Provider)
	}
	if c.Qdrant.URL == "" || c.Qdrant.Collection == "" {
		return fmt.Errorf("%w: qdrant.url and qdrant.collection are required", ErrInvalidConfig)
	}
	if c.Qdrant.UpsertBatch <= 0 {
		return fmt.Errorf("%w: qdrant.upsert_batch must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.NeighborWindow < 0 || c.Retrieval.MaxNeighborChunks < 0 {
		return fmt.Errorf("%w: retrieval neighbor settings cannot be negative", ErrInvalidConfig)
	}
	if c.Notes.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: notes.max_chunk_chars must be positive", ErrInvalidConfig)
	}
	if c.Notes.MinChars > c.Notes.TargetChars {
		return fmt.Errorf("%w: notes.min_chars cannot exceed notes.target_chars", ErrInvalidConfig)
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("%w: pipeline.concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}

// CatalogPath is the SQLite file holding the relational catalog.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "lectern.db")
}

// SubjectDir is the directory holding a subject's assets and notes.
func (c *Config) SubjectDir(subjectID string) string {
	return filepath.Join(c.DataDir, "subjects", subjectID)
}

// AssetDir is the directory holding one asset's raw file and artifacts.
func (c *Config) AssetDir(subjectID, assetID string) string {
	return filepath.Join(c.SubjectDir(subjectID), assetID)
}

// NotesDir is the directory holding a subject's versioned notes markdown.
func (c *Config) NotesDir(subjectID string) string {
	return filepath.Join(c.SubjectDir(subjectID), "notes")
}
