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


package lectern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/ai/ollama"
	"github.com/poiesic/lectern/ai/openai"
	"github.com/poiesic/lectern/answer"
	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingest"
	"github.com/poiesic/lectern/ingest/chunk"
	"github.com/poiesic/lectern/ingest/ocr"
	"github.com/poiesic/lectern/ingest/render"
	"github.com/poiesic/lectern/notes"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/reindex"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/storage/sqlite"
	"github.com/poiesic/lectern/web"
)

// VectorIndex is the full vector index surface the library wires into its
// services: the per-package interfaces (ingest, retrieval, notes, reindex)
// are all slices of it. *qdrant.Client satisfies it.
type VectorIndex interface {
	Collection() string
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []qdrant.Point) error
	Search(ctx context.Context, req qdrant.SearchRequest) ([]qdrant.ScoredPoint, error)
	Count(ctx context.Context) (int64, error)
	DeleteByAssetID(ctx context.Context, assetID string) error
	DeleteByNotesID(ctx context.Context, notesID string) error
	Ready(ctx context.Context) error
}

// Library is the facade over one data directory: the relational catalog, the
// stored files and artifacts under it, the vector index collection and the
// AI provider. It hands out the ingestion pipeline, searcher, answerer,
// notes service and reindexer wired to those shared stores.
type Library struct {
	config      *config.Config
	backend     *sqlite.Backend
	subjectRepo storage.SubjectRepository
	assetRepo   storage.AssetRepository
	chunkRepo   storage.ChunkRepository
	notesRepo   storage.NotesRepository
	provider    ai.Provider
	index       VectorIndex
	logger      *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	provider ai.Provider
	index    VectorIndex
	logger   *slog.Logger
}

// WithProvider substitutes the AI provider built from the configuration.
// The library takes ownership and closes it with Close.
func WithProvider(provider ai.Provider) LibraryOption {
	return func(o *libraryOptions) {
		o.provider = provider
	}
}

// WithVectorIndex substitutes the vector index client built from the
// configuration.
func WithVectorIndex(index VectorIndex) LibraryOption {
	return func(o *libraryOptions) {
		o.index = index
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(o *libraryOptions) {
		o.logger = logger
	}
}

// Open validates the configuration, creates the data directory, opens the
// catalog and connects the vector index and AI provider. The caller owns the
// returned Library and must Close it.
func Open(cfg *config.Config, opts ...LibraryOption) (*Library, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	options := &libraryOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// Open catalog backend
	backend, err := sqlite.OpenBackend(cfg.CatalogPath())
	if err != nil {
		return nil, err
	}

	// Create catalog repositories
	subjectRepo, err := sqlite.NewSubjectRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	assetRepo, err := sqlite.NewAssetRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	chunkRepo, err := sqlite.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	notesRepo, err := sqlite.NewNotesRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Connect vector index
	index := options.index
	if index == nil {
		index, err = qdrant.NewClient(qdrant.Config{
			URL:         cfg.Qdrant.URL,
			Collection:  cfg.Qdrant.Collection,
			APIKey:      cfg.Qdrant.APIKey(),
			VectorSize:  cfg.AI.VectorSize,
			Timeout:     cfg.Qdrant.Timeout(),
			UpsertBatch: cfg.Qdrant.UpsertBatch,
		})
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = newProvider(cfg)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Library{
		config:      cfg,
		backend:     backend,
		subjectRepo: subjectRepo,
		assetRepo:   assetRepo,
		chunkRepo:   chunkRepo,
		notesRepo:   notesRepo,
		provider:    ai.WithNormalizedEmbeddings(provider),
		index:       index,
		logger:      logger,
	}, nil
}

// newProvider builds the AI provider named by the configuration.
func newProvider(cfg *config.Config) (ai.Provider, error) {
	aiConfig := &ai.Config{
		BaseURL:        cfg.AI.BaseURL,
		APIKey:         cfg.AI.APIKey(),
		ChatModel:      cfg.AI.ChatModel,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		VectorSize:     cfg.AI.VectorSize,
		Temperature:    cfg.AI.Temperature,
		TopP:           cfg.AI.TopP,
		MaxTokens:      cfg.AI.MaxTokens,
		Timeout:        cfg.AI.Timeout(),
	}
	switch cfg.AI.Provider {
	case "openai":
		return openai.NewProvider(aiConfig)
	case "ollama":
		return ollama.NewProvider(aiConfig)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.AI.Provider)
	}
}

func (l *Library) Close() error {
	// Close AI provider first
	if err := l.provider.Close(); err != nil {
		l.logger.Error("error closing AI provider", "error", err)
	}

	// Close catalog backend
	if err := l.backend.Close(); err != nil {
		l.logger.Error("error closing catalog backend", "error", err)
		return err
	}
	return nil
}

func (l *Library) Config() *config.Config {
	return l.config
}

func (l *Library) SubjectRepository() storage.SubjectRepository {
	return l.subjectRepo
}

func (l *Library) AssetRepository() storage.AssetRepository {
	return l.assetRepo
}

func (l *Library) ChunkRepository() storage.ChunkRepository {
	return l.chunkRepo
}

func (l *Library) NotesRepository() storage.NotesRepository {
	return l.notesRepo
}

func (l *Library) VectorIndex() VectorIndex {
	return l.index
}

func (l *Library) Provider() ai.Provider {
	return l.provider
}

// EnsureCollection creates the vector collection when absent and verifies
// its dimension when present. Call it before the first indexing run.
func (l *Library) EnsureCollection(ctx context.Context) error {
	return l.index.EnsureCollection(ctx)
}

// CreateSubject registers a new subject and creates its directory.
func (l *Library) CreateSubject(ctx context.Context, name string, metadata map[string]string) (*core.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrSubjectNameRequired
	}

	subject := &core.Subject{
		Id:       uuid.NewString(),
		Name:     name,
		Metadata: metadata,
	}
	if err := l.subjectRepo.CreateSubject(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	if err := os.MkdirAll(l.config.SubjectDir(subject.Id), 0o755); err != nil {
		return nil, fmt.Errorf("create subject dir: %w", err)
	}

	l.logger.Info("subject created", "subject_id", subject.Id, "name", name)
	return subject, nil
}

// AddAsset copies the file at path into the subject's library storage and
// registers it at stage stored. A file the subject already holds (same
// content hash) is returned as-is, whatever its current stage. The same
// content cannot be registered under two subjects: the asset id is derived
// from the bytes alone.
func (l *Library) AddAsset(ctx context.Context, subjectID, path string) (*core.Asset, error) {
	if _, err := l.subjectRepo.GetSubject(ctx, subjectID); err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}

	contentHash := core.ContentHash(data)
	existing, err := l.assetRepo.FindAssetByHash(ctx, subjectID, contentHash)
	if err == nil {
		l.logger.Info("asset already stored",
			"subject_id", subjectID,
			"asset_id", existing.Id,
			"filename", existing.Filename)
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check for duplicate: %w", err)
	}

	assetID := core.AssetIDFromBytes(data)
	ext := strings.ToLower(filepath.Ext(path))
	dir := l.config.AssetDir(subjectID, assetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	storagePath := filepath.Join(dir, "source"+ext)
	if err := os.WriteFile(storagePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("store source file: %w", err)
	}

	asset := &core.Asset{
		Id:          assetID,
		SubjectId:   subjectID,
		Filename:    filepath.Base(path),
		StoragePath: storagePath,
		ContentHash: contentHash,
		SizeBytes:   int64(len(data)),
		MimeType:    mimeTypeFor(ext),
	}
	if err := l.assetRepo.CreateAsset(ctx, asset); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: file already stored under another subject", err)
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}
	if err := l.assetRepo.SetStage(ctx, assetID, core.StageStored, ""); err != nil {
		return nil, fmt.Errorf("record stage: %w", err)
	}

	l.logger.Info("asset stored",
		"subject_id", subjectID,
		"asset_id", assetID,
		"filename", asset.Filename,
		"size_bytes", asset.SizeBytes)
	return asset, nil
}

func mimeTypeFor(ext string) string {
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// NewPipeline builds the indexing pipeline over the library's stores. The
// configured worker pool size applies unless an option overrides it.
func (l *Library) NewPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	cfg := l.config
	if cfg.Pipeline.Concurrency > 0 {
		opts = append([]ingest.Option{ingest.WithPoolSize(cfg.Pipeline.Concurrency)}, opts...)
	}
	return ingest.NewPipeline(l.assetRepo, l.chunkRepo, l.provider.Embedder(), l.index, ingest.Config{
		DataDir: cfg.DataDir,
		Render:  render.Config{DPI: cfg.Render.DPI},
		OCR: ocr.Config{
			Engine:          cfg.OCR.Engine,
			Lang:            cfg.OCR.Languages,
			CaptionMinChars: cfg.OCR.CaptionMinChars,
			FullPageBBox:    cfg.OCR.FullPageBBox,
		},
		Chunk: chunk.Config{
			MaxChars:      cfg.Chunking.MaxChunkChars,
			MinChars:      cfg.Chunking.MinChunkChars,
			OverlapBlocks: cfg.Chunking.OverlapBlocks,
		},
		PageConcurrency: cfg.OCR.PageConcurrency,
	}, opts...)
}

// NewSearcher builds a retrieval searcher over the library's index and
// chunk catalog.
func (l *Library) NewSearcher(opts ...retrieval.Option) (*retrieval.Searcher, error) {
	return retrieval.NewSearcher(l.index, l.chunkRepo, opts...)
}

// NewAnswerer builds the question answerer. Web search is attached when the
// configuration enables it and its API key resolves; otherwise the judge
// reports web_disabled and answers stay inside the index.
func (l *Library) NewAnswerer(opts ...answer.Option) (*answer.Answerer, error) {
	cfg := l.config
	if cfg.Web.Enabled {
		if key := cfg.Web.APIKey(); key != "" {
			client, err := web.NewClient(web.Config{
				Endpoint:     cfg.Web.Endpoint,
				APIKey:       key,
				MaxResults:   cfg.Web.MaxResults,
				AllowDomains: cfg.Web.AllowDomains,
				BlockDomains: cfg.Web.BlockDomains,
				Timeout:      cfg.Web.Timeout(),
			})
			if err != nil {
				return nil, err
			}
			opts = append([]answer.Option{answer.WithWebSearch(client)}, opts...)
		} else {
			l.logger.Warn("web search enabled but no API key resolved", "env", cfg.Web.APIKeyEnv)
		}
	}

	return answer.NewAnswerer(l.index, l.chunkRepo, l.provider, answer.Config{
		TopK:              cfg.Retrieval.TopK,
		MinScore:          cfg.Retrieval.MinScore,
		NeighborWindow:    cfg.Retrieval.NeighborWindow,
		MaxNeighborChunks: cfg.Retrieval.MaxNeighborChunks,
		WebMaxQueries:     cfg.Web.MaxQueries,
		WebSnippetBudget:  cfg.Web.SnippetCharBudget,
		JudgeMinHits:      cfg.Web.JudgeMinHits,
		JudgeMinScore:     cfg.Web.JudgeMinScore,
	}, opts...)
}

// NewNotesService builds the study-notes service.
func (l *Library) NewNotesService(opts ...notes.Option) (*notes.Service, error) {
	cfg := l.config
	return notes.NewService(l.assetRepo, l.chunkRepo, l.notesRepo, l.index, l.provider, notes.Config{
		DataDir:       cfg.DataDir,
		TargetChars:   cfg.Notes.TargetChars,
		MinChars:      cfg.Notes.MinChars,
		ContextChars:  cfg.Notes.ContextChars,
		MaxChunkChars: cfg.Notes.MaxChunkChars,
	}, opts...)
}

// NewReindexer builds a reindexer that rebuilds every vector point from the
// catalog, reporting progress to out. A nil config uses the defaults.
func (l *Library) NewReindexer(config *reindex.Config, out io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(l.subjectRepo, l.assetRepo, l.chunkRepo, l.notesRepo,
		l.provider.Embedder(), l.index, config, out)
}
