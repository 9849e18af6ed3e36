package ingest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingest/chunk"
	"github.com/poiesic/lectern/ingest/ocr"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage/sqlite"
)

// fakeIndex records upserted points in memory.
type fakeIndex struct {
	mu     sync.Mutex
	points []qdrant.Point
	err    error
}

func (f *fakeIndex) Upsert(_ context.Context, points []qdrant.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeIndex) upserted() []qdrant.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]qdrant.Point(nil), f.points...)
}

type pipelineFixture struct {
	pipeline *Pipeline
	repos    *sqlite.MemoryRepositories
	embedder *mock.MockEmbedder
	index    *fakeIndex
	dataDir  string
	assetSeq int
}

func newPipelineFixture(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()

	repos, err := sqlite.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Backend.Close() })

	embedder := mock.NewMockEmbedder()
	index := &fakeIndex{}
	dataDir := t.TempDir()

	config := Config{
		DataDir:         dataDir,
		OCR:             ocr.Config{Engine: ocr.EngineStub},
		Chunk:           chunk.DefaultConfig(),
		PageConcurrency: 2,
	}
	pipeline, err := NewPipeline(repos.Assets, repos.Chunks, embedder, index, config, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	require.NoError(t, repos.Subjects.CreateSubject(context.Background(), &core.Subject{
		Id:   "bio101",
		Name: "Biology 101",
	}))

	return &pipelineFixture{
		pipeline: pipeline,
		repos:    repos,
		embedder: embedder,
		index:    index,
		dataDir:  dataDir,
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 16))
	for x := 0; x < 24; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 14), B: 90, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// addAsset stores an asset row. With withFile, a small PNG is written at the
// asset's storage path so the image renderer has something real to decode.
func (fx *pipelineFixture) addAsset(t *testing.T, id string, withFile bool) *core.Asset {
	t.Helper()
	fx.assetSeq++

	path := filepath.Join(fx.dataDir, "store", id+".png")
	if withFile {
		writePNG(t, path)
	}

	asset := &core.Asset{
		Id:          id,
		SubjectId:   "bio101",
		Filename:    fmt.Sprintf("lecture%d.png", fx.assetSeq),
		StoragePath: path,
		ContentHash: fmt.Sprintf("%064d", fx.assetSeq),
		SizeBytes:   1,
		MimeType:    "image/png",
		CreatedAt:   time.Now().Add(time.Duration(fx.assetSeq) * time.Second),
	}
	require.NoError(t, fx.repos.Assets.CreateAsset(context.Background(), asset))
	return asset
}

func TestNewPipelineValidation(t *testing.T) {
	repos, err := sqlite.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Backend.Close()

	embedder := mock.NewMockEmbedder()
	index := &fakeIndex{}
	config := Config{DataDir: t.TempDir()}

	_, err = NewPipeline(nil, repos.Chunks, embedder, index, config)
	assert.ErrorIs(t, err, ErrAssetRepositoryRequired)

	_, err = NewPipeline(repos.Assets, nil, embedder, index, config)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewPipeline(repos.Assets, repos.Chunks, nil, index, config)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(repos.Assets, repos.Chunks, embedder, nil, config)
	assert.ErrorIs(t, err, ErrVectorIndexRequired)

	_, err = NewPipeline(repos.Assets, repos.Chunks, embedder, index, Config{})
	assert.ErrorIs(t, err, ErrDataDirRequired)
}

func TestProcessAssetFullRun(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "a1b2c3d4e5f60718", true)

	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))

	stage, message, err := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StageIndexed, stage)
	assert.Empty(t, message)

	// One rendered page, normalized name, measured dimensions.
	pages, err := fx.repos.Assets.ListPages(ctx, asset.Id)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].PageNum)
	assert.Equal(t, "page_0001.png", filepath.Base(pages[0].Path))
	assert.Equal(t, 24, pages[0].Width)
	assert.Equal(t, 16, pages[0].Height)
	wantPagesDir := filepath.Join(fx.dataDir, "subjects", "bio101", asset.Id, "pages")
	assert.Equal(t, wantPagesDir, filepath.Dir(pages[0].Path))

	// One OCR row from the stub engine, flagged for captioning, with a
	// loadable artifact behind it.
	records, err := fx.repos.Assets.ListOCRRecords(ctx, asset.Id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ocr.EngineStub, records[0].Engine)
	assert.True(t, records[0].NeedsCaption)
	recognized, err := ocr.LoadPage(records[0].BlockPath)
	require.NoError(t, err)
	require.Len(t, recognized.Blocks, 1)

	// One chunk row and a matching artifact.
	chunks, err := fx.repos.Chunks.ListChunksByAsset(ctx, asset.Id)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, recognized.Blocks[0].Text, chunks[0].Text)

	artifact := filepath.Join(fx.dataDir, "subjects", "bio101", asset.Id, "chunks.json")
	fromArtifact, err := chunk.ReadChunks(artifact)
	require.NoError(t, err)
	require.Len(t, fromArtifact, 1)
	assert.Equal(t, chunks[0].Id, fromArtifact[0].Id)

	// One point with the slide payload and the deterministic id.
	points := fx.index.upserted()
	require.Len(t, points, 1)
	identity := qdrant.SlideIdentity("bio101", asset.Id, 1, chunks[0].Id)
	assert.Equal(t, qdrant.PointID(identity), points[0].ID)
	assert.Equal(t, qdrant.SourceTypeSlide, points[0].Payload["source_type"])
	assert.Equal(t, pages[0].Path, points[0].Payload["image_path"])
	assert.Equal(t, asset.Filename, points[0].Payload["source"])
	assert.Equal(t, chunks[0].Id, points[0].Payload["chunk_id"])
	assert.Len(t, points[0].Vector, 768)
}

func TestProcessAssetIdempotentAndForce(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "a1b2c3d4e5f60718", true)

	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))
	require.Len(t, fx.index.upserted(), 1)

	// An indexed asset is a no-op without force.
	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))
	assert.Len(t, fx.index.upserted(), 1)

	// Force re-runs everything and lands on the same deterministic point id.
	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, true))
	points := fx.index.upserted()
	require.Len(t, points, 2)
	assert.Equal(t, points[0].ID, points[1].ID)
}

func TestProcessAssetMissingFile(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "bbbbccccddddeeee", false)

	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))

	stage, message, err := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StageMissing, stage)
	assert.Contains(t, message, asset.StoragePath)
	assert.Empty(t, fx.index.upserted())
}

func TestProcessAssetStageGating(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "a1b2c3d4e5f60718", true)

	// An asset already past embedding only gets the indexed marker: no
	// pages are rendered and nothing reaches the vector index.
	require.NoError(t, fx.repos.Assets.SetStage(ctx, asset.Id, core.StageEmbedded, ""))
	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))

	stage, _, err := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StageIndexed, stage)
	assert.Empty(t, fx.index.upserted())

	pages, err := fx.repos.Assets.ListPages(ctx, asset.Id)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestProcessAssetResumesFromChunkArtifact(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "a1b2c3d4e5f60718", true)

	// Simulate a run that finished chunking and crashed before embedding.
	stored := core.Chunk{
		Id:         core.ChunkID(asset.Id, 2, 0, 1),
		AssetId:    asset.Id,
		SubjectId:  "bio101",
		PageNum:    2,
		StartBlock: 0,
		EndBlock:   1,
		Text:       "Glycolysis yields two ATP.",
		BBox:       [4]float64{0, 0, 1, 1},
		CharCount:  26,
	}
	artifact := filepath.Join(fx.dataDir, "subjects", "bio101", asset.Id, "chunks.json")
	require.NoError(t, chunk.WriteChunks([]core.Chunk{stored}, artifact))
	require.NoError(t, fx.repos.Assets.SetStage(ctx, asset.Id, core.StageChunked, ""))

	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))

	stage, _, err := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StageIndexed, stage)

	points := fx.index.upserted()
	require.Len(t, points, 1)
	assert.Equal(t, stored.Id, points[0].Payload["chunk_id"])
	assert.Equal(t, stored.Text, points[0].Payload["text"])
	// No page rows survive the simulated crash, so the payload has no image.
	assert.Equal(t, "", points[0].Payload["image_path"])
}

func TestProcessAssetIndexFailure(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "a1b2c3d4e5f60718", true)
	fx.index.err = errors.New("connection refused")

	err := fx.pipeline.ProcessAsset(ctx, asset, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index chunks")

	stage, message, stageErr := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, stageErr)
	assert.Equal(t, core.StageFailed, stage)
	assert.Contains(t, message, "connection refused")

	// The earlier stages persisted, so a retry after the index recovers
	// resumes at embedding instead of re-rendering.
	fx.index.err = nil
	require.NoError(t, fx.pipeline.ProcessAsset(ctx, asset, false))
	stage, _, stageErr = fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, stageErr)
	assert.Equal(t, core.StageIndexed, stage)
	assert.Len(t, fx.index.upserted(), 1)
}

func TestProcessAssetCorruptSource(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()

	asset := fx.addAsset(t, "ffff0000aaaa1111", false)
	require.NoError(t, os.MkdirAll(filepath.Dir(asset.StoragePath), 0o755))
	require.NoError(t, os.WriteFile(asset.StoragePath, []byte("not an image"), 0o644))

	err := fx.pipeline.ProcessAsset(ctx, asset, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render pages")

	stage, message, stageErr := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, stageErr)
	assert.Equal(t, core.StageFailed, stage)
	assert.NotEmpty(t, message)
}

func TestProcessAssetNil(t *testing.T) {
	fx := newPipelineFixture(t)
	err := fx.pipeline.ProcessAsset(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrAssetRequired)
}

func TestOCRStageRecordsEngineMessage(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()
	asset := fx.addAsset(t, "a1b2c3d4e5f60718", true)

	// Drive the OCR stage directly so later stages cannot overwrite the
	// engine message it records.
	require.NoError(t, fx.repos.Assets.SetStage(ctx, asset.Id, core.StageRendered, ""))
	require.NoError(t, fx.repos.Assets.ReplacePages(ctx, asset.Id, []*core.PageImage{
		{AssetId: asset.Id, PageNum: 1, Path: asset.StoragePath, Width: 24, Height: 16},
	}))

	pages, err := fx.repos.Assets.ListPages(ctx, asset.Id)
	require.NoError(t, err)
	require.NoError(t, fx.pipeline.ocrStage(ctx, asset, pages, fx.pipeline.paths(asset)))

	stage, message, err := fx.repos.Assets.GetStage(ctx, asset.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StageOCRDone, stage)
	assert.Equal(t, "OCR engine used: stub", message)
}

func TestAssetLocksSerializeSameAsset(t *testing.T) {
	locks := newAssetLocks()

	first := locks.acquire("asset-1")
	second := locks.acquire("asset-1")
	other := locks.acquire("asset-2")

	assert.Same(t, first, second)
	if first == other {
		t.Fatal("different assets must get different locks")
	}
}

func TestPathsLayout(t *testing.T) {
	fx := newPipelineFixture(t)
	asset := &core.Asset{Id: "aaaa", SubjectId: "s1"}

	paths := fx.pipeline.paths(asset)
	base := filepath.Join(fx.dataDir, "subjects", "s1", "aaaa")
	assert.Equal(t, filepath.Join(base, "pages"), paths.pagesDir)
	assert.Equal(t, filepath.Join(base, "ocr"), paths.ocrDir)
	assert.Equal(t, filepath.Join(base, "chunks.json"), paths.chunkArtifact)
	assert.True(t, strings.HasPrefix(paths.pagesDir, fx.dataDir))
}
