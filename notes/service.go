package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
)

const (
	defaultTargetChars   = 8000
	defaultMinChars      = 6000
	defaultContextChars  = 8000
	defaultMaxChunkChars = 1000

	// maxChunkCap is the hard upper bound on one notes chunk regardless of
	// configuration.
	maxChunkCap = 1200

	defaultTitle = "Study Notes"
)

// VectorIndex is the slice of the vector index client the service writes
// through. *qdrant.Client satisfies it.
type VectorIndex interface {
	Upsert(ctx context.Context, points []qdrant.Point) error
	DeleteByNotesID(ctx context.Context, notesID string) error
}

// Config carries the generation and chunking budgets for one service.
type Config struct {
	// DataDir is the root under which the versioned markdown artifacts
	// live, as subjects/<subject>/notes/<notes_id>_v<version>.md.
	DataDir string

	// TargetChars and MinChars steer how long the model makes the notes.
	// Zero means 8000 and 6000.
	TargetChars int
	MinChars    int

	// ContextChars caps the slide text included in the generation prompt.
	// Zero means 8000.
	ContextChars int

	// MaxChunkChars bounds one notes chunk for embedding. Zero means 1000;
	// values above 1200 are clamped.
	MaxChunkChars int
}

func (c Config) normalize() Config {
	if c.TargetChars <= 0 {
		c.TargetChars = defaultTargetChars
	}
	if c.MinChars <= 0 {
		c.MinChars = defaultMinChars
	}
	if c.ContextChars <= 0 {
		c.ContextChars = defaultContextChars
	}
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = defaultMaxChunkChars
	}
	if c.MaxChunkChars > maxChunkCap {
		c.MaxChunkChars = maxChunkCap
	}
	return c
}

// Result reports one saved notes version.
type Result struct {
	NotesID    string
	Version    int
	ChunkCount int

	// Path is the versioned markdown artifact.
	Path string
}

// Service generates, versions and indexes markdown study notes per asset.
type Service struct {
	assets    storage.AssetRepository
	chunks    storage.ChunkRepository
	notes     storage.NotesRepository
	index     VectorIndex
	embedder  ai.Embedder
	generator ai.Generator
	config    Config
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a notes service over the catalog repositories, AI
// provider and vector index.
func NewService(
	assets storage.AssetRepository,
	chunks storage.ChunkRepository,
	notes storage.NotesRepository,
	index VectorIndex,
	provider ai.Provider,
	config Config,
	opts ...Option,
) (*Service, error) {
	if assets == nil {
		return nil, ErrAssetRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if notes == nil {
		return nil, ErrNotesRepositoryRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if config.DataDir == "" {
		return nil, ErrDataDirRequired
	}

	s := &Service{
		assets:    assets,
		chunks:    chunks,
		notes:     notes,
		index:     index,
		embedder:  provider.Embedder(),
		generator: provider.Generator(),
		config:    config.normalize(),
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Generate asks the model for study notes over the asset's indexed chunks
// and saves the result as the next version. The notes title is derived from
// the asset's filename.
func (s *Service) Generate(ctx context.Context, subjectID, assetID string) (*Result, error) {
	asset, err := s.assetInSubject(ctx, subjectID, assetID)
	if err != nil {
		return nil, err
	}

	rows, err := s.chunks.ListChunksByAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChunks, assetID)
	}

	prompt := buildNotesPrompt(
		slideContext(rows, s.config.ContextChars),
		s.config.TargetChars,
		s.config.MinChars)
	s.logger.Info("generating notes",
		"subject_id", subjectID,
		"asset_id", assetID,
		"chunks", len(rows))
	markdown, err := s.generator.Generate(ctx, notesSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate notes: %w", err)
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, ErrEmptyNotes
	}

	return s.Save(ctx, subjectID, assetID, titleFor(asset), markdown, nil)
}

// Save stores markdown as the next notes version for the asset: a versioned
// markdown artifact, notes and chunk rows, fresh vector points, and removal
// of the prior version's points.
func (s *Service) Save(ctx context.Context, subjectID, assetID, title, markdown string, webURLs []string) (*Result, error) {
	if _, err := s.assetInSubject(ctx, subjectID, assetID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, ErrEmptyNotes
	}
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}

	prior, err := s.notes.GetLatestNotes(ctx, subjectID, assetID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load latest notes: %w", err)
	}
	version := 1
	if prior != nil {
		version = prior.Version + 1
	}

	notesID := uuid.NewString()
	parts := chunkMarkdown(markdown, notesID, s.config.MaxChunkChars)
	if len(parts) == 0 {
		return nil, ErrEmptyNotes
	}

	path, err := s.writeArtifact(subjectID, notesID, version, markdown)
	if err != nil {
		return nil, err
	}

	record := &core.Notes{
		Id:        notesID,
		SubjectId: subjectID,
		AssetId:   assetID,
		Title:     title,
		Markdown:  markdown,
		Version:   version,
		WebURLs:   webURLs,
	}
	if err := s.notes.CreateNotes(ctx, record); err != nil {
		return nil, fmt.Errorf("store notes: %w", err)
	}

	rows := make([]*core.NotesChunk, len(parts))
	texts := make([]string, len(parts))
	for i, p := range parts {
		rows[i] = &core.NotesChunk{
			Id:           p.ID,
			NotesId:      notesID,
			SubjectId:    subjectID,
			AssetId:      assetID,
			Version:      version,
			SectionTitle: p.Title,
			Idx:          p.Idx,
			StartChar:    p.Start,
			Text:         p.Text,
		}
		texts[i] = p.Text
	}
	if err := s.notes.UpsertNotesChunks(ctx, rows); err != nil {
		return nil, fmt.Errorf("store notes chunks: %w", err)
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed notes chunks: %w", err)
	}
	if len(vectors) != len(rows) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(rows))
	}

	points := make([]qdrant.Point, len(rows))
	for i, row := range rows {
		points[i] = qdrant.NewNotesPoint(record, *row, vectors[i])
	}

	// The new version fully replaces the prior one for retrieval, so the
	// prior version's points go before the new ones land.
	if prior != nil {
		if err := s.index.DeleteByNotesID(ctx, prior.Id); err != nil {
			return nil, fmt.Errorf("delete superseded points: %w", err)
		}
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("index notes chunks: %w", err)
	}

	s.logger.Info("notes saved",
		"subject_id", subjectID,
		"asset_id", assetID,
		"notes_id", notesID,
		"version", version,
		"chunks", len(points))
	return &Result{NotesID: notesID, Version: version, ChunkCount: len(points), Path: path}, nil
}

func (s *Service) assetInSubject(ctx context.Context, subjectID, assetID string) (*core.Asset, error) {
	asset, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if asset.SubjectId != subjectID {
		return nil, fmt.Errorf("%w: asset %s not in subject %s", storage.ErrNotFound, assetID, subjectID)
	}
	return asset, nil
}

func (s *Service) writeArtifact(subjectID, notesID string, version int, markdown string) (string, error) {
	dir := filepath.Join(s.config.DataDir, "subjects", subjectID, "notes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create notes dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_v%d.md", notesID, version))
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write notes artifact: %w", err)
	}
	return path, nil
}

func titleFor(asset *core.Asset) string {
	base := strings.TrimSuffix(asset.Filename, filepath.Ext(asset.Filename))
	if strings.TrimSpace(base) == "" {
		return defaultTitle
	}
	return base
}
