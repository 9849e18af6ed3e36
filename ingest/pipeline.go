package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingest/chunk"
	"github.com/poiesic/lectern/ingest/ocr"
	"github.com/poiesic/lectern/ingest/render"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
)

// VectorIndex is the slice of the vector index client the pipeline writes
// through. *qdrant.Client satisfies it.
type VectorIndex interface {
	Upsert(ctx context.Context, points []qdrant.Point) error
}

// DefaultPageConcurrency bounds parallel per-page OCR within one asset when
// the configuration does not say otherwise.
const DefaultPageConcurrency = 4

// Config carries the stage tuning the pipeline needs from the process
// configuration.
type Config struct {
	// DataDir is the root under which asset artifacts live, laid out as
	// <DataDir>/subjects/<subject>/<asset>/{pages/, ocr/, chunks.json}.
	DataDir string

	Render render.Config
	OCR    ocr.Config
	Chunk  chunk.Config

	// PageConcurrency bounds parallel per-page OCR within one asset.
	// Zero means DefaultPageConcurrency.
	PageConcurrency int
}

// Pipeline drives an asset through the ordered indexing stages
// (render, OCR, chunk, embed, index) and records stage status after each.
// Concurrent runs over the same asset are serialized by an in-process lock.
type Pipeline struct {
	assets   storage.AssetRepository
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	index    VectorIndex
	config   Config
	pool     *ants.Pool
	locks    *assetLocks
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for batch indexing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an indexing pipeline over the given catalog
// repositories, embedder and vector index.
func NewPipeline(
	assets storage.AssetRepository,
	chunks storage.ChunkRepository,
	embedder ai.Embedder,
	index VectorIndex,
	config Config,
	opts ...Option,
) (*Pipeline, error) {
	if assets == nil {
		return nil, ErrAssetRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if config.DataDir == "" {
		return nil, ErrDataDirRequired
	}
	if config.PageConcurrency < 1 {
		config.PageConcurrency = DefaultPageConcurrency
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		assets:   assets,
		chunks:   chunks,
		embedder: embedder,
		index:    index,
		config:   config,
		pool:     pool,
		locks:    newAssetLocks(),
		logger:   slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// ProcessAsset runs the asset through every stage its stored status has not
// covered yet. With force, all stages re-run from scratch. A missing source
// file records terminal `missing` status and returns nil. Any stage error is
// recorded as `failed` with the error text and returned.
func (p *Pipeline) ProcessAsset(ctx context.Context, asset *core.Asset, force bool) error {
	if asset == nil {
		return ErrAssetRequired
	}

	lock := p.locks.acquire(asset.Id)
	lock.Lock()
	defer lock.Unlock()

	var current core.Stage
	if !force {
		stage, _, err := p.assets.GetStage(ctx, asset.Id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("read stage: %w", err)
		}
		current = stage
	}

	// The missing-file check precedes stage gating: a vanished source is
	// terminal no matter how far the asset got before.
	if _, err := os.Stat(asset.StoragePath); err != nil {
		p.logger.Warn("source file missing",
			"asset_id", asset.Id,
			"path", asset.StoragePath)
		message := fmt.Sprintf("source file missing: %s", asset.StoragePath)
		return p.assets.SetStage(ctx, asset.Id, core.StageMissing, message)
	}

	if err := p.runStages(ctx, asset, current); err != nil {
		statusCtx := context.WithoutCancel(ctx)
		if stErr := p.assets.SetStage(statusCtx, asset.Id, core.StageFailed, err.Error()); stErr != nil {
			p.logger.Error("record failed stage",
				"asset_id", asset.Id,
				"err", stErr)
		}
		return err
	}
	return nil
}

func (p *Pipeline) runStages(ctx context.Context, asset *core.Asset, current core.Stage) error {
	paths := p.paths(asset)

	var (
		pages []*core.PageImage
		err   error
	)
	if core.ShouldRun(current, core.StageRendered) {
		if pages, err = p.renderStage(ctx, asset, paths); err != nil {
			return err
		}
		current = core.StageRendered
	} else if pages, err = p.assets.ListPages(ctx, asset.Id); err != nil {
		return fmt.Errorf("load pages: %w", err)
	}

	if core.ShouldRun(current, core.StageOCRDone) {
		if err = p.ocrStage(ctx, asset, pages, paths); err != nil {
			return err
		}
		current = core.StageOCRDone
	}

	var chunks []core.Chunk
	if core.ShouldRun(current, core.StageChunked) {
		if chunks, err = p.chunkStage(ctx, asset, paths); err != nil {
			return err
		}
		current = core.StageChunked
	} else {
		chunks, err = chunk.ReadChunks(paths.chunkArtifact)
		if errors.Is(err, os.ErrNotExist) {
			chunks, err = nil, nil
		}
		if err != nil {
			return fmt.Errorf("load chunk artifact: %w", err)
		}
	}

	if core.ShouldRun(current, core.StageEmbedded) {
		if err = p.embedStage(ctx, asset, pages, chunks); err != nil {
			return err
		}
		current = core.StageEmbedded
	}

	if core.ShouldRun(current, core.StageIndexed) {
		if err = p.assets.SetStage(ctx, asset.Id, core.StageIndexed, ""); err != nil {
			return fmt.Errorf("record indexed stage: %w", err)
		}
		p.logger.Info("asset indexed",
			"asset_id", asset.Id,
			"subject_id", asset.SubjectId)
	}
	return nil
}

// rendererFor picks the renderer by mime type first, file extension second.
func (p *Pipeline) rendererFor(asset *core.Asset) (render.Renderer, error) {
	if strings.HasPrefix(strings.ToLower(asset.MimeType), "application/pdf") {
		return render.NewPDFRenderer(p.config.Render), nil
	}
	return render.ForFile(asset.StoragePath, p.config.Render)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// assetPaths locates one asset's derived artifacts under the data directory.
type assetPaths struct {
	pagesDir      string
	ocrDir        string
	chunkArtifact string
}

func (p *Pipeline) paths(asset *core.Asset) assetPaths {
	dir := filepath.Join(p.config.DataDir, "subjects", asset.SubjectId, asset.Id)
	return assetPaths{
		pagesDir:      filepath.Join(dir, "pages"),
		ocrDir:        filepath.Join(dir, "ocr"),
		chunkArtifact: filepath.Join(dir, "chunks.json"),
	}
}

// assetLocks serializes runs over the same asset so interleaved stage writes
// cannot corrupt the chunk artifact.
type assetLocks struct {
	mu   sync.Mutex
	byID map[string]*sync.Mutex
}

func newAssetLocks() *assetLocks {
	return &assetLocks{byID: make(map[string]*sync.Mutex)}
}

func (l *assetLocks) acquire(assetID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.byID[assetID]
	if !ok {
		lock = &sync.Mutex{}
		l.byID[assetID] = lock
	}
	return lock
}
