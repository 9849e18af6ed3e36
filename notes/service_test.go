package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVectorIndex struct {
	ops       []string
	upserts   [][]qdrant.Point
	deleted   []string
	upsertErr error
	deleteErr error
}

func (f *fakeVectorIndex) Upsert(_ context.Context, points []qdrant.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.ops = append(f.ops, fmt.Sprintf("upsert:%d", len(points)))
	f.upserts = append(f.upserts, points)
	return nil
}

func (f *fakeVectorIndex) DeleteByNotesID(_ context.Context, notesID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.ops = append(f.ops, "delete:"+notesID)
	f.deleted = append(f.deleted, notesID)
	return nil
}

type serviceFixture struct {
	service   *Service
	repos     *sqlite.MemoryRepositories
	index     *fakeVectorIndex
	embedder  *mock.MockEmbedder
	generator *mock.MockGenerator
	dataDir   string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repos, err := sqlite.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Backend.Close() })

	ctx := context.Background()
	require.NoError(t, repos.Subjects.CreateSubject(ctx, &core.Subject{Id: "bio101", Name: "Biology"}))
	require.NoError(t, repos.Assets.CreateAsset(ctx, &core.Asset{
		Id:        "asset1",
		SubjectId: "bio101",
		Filename:  "lecture3.pdf",
	}))

	index := &fakeVectorIndex{}
	embedder := mock.NewMockEmbedder()
	embedder.Dim = 4
	generator := mock.NewMockGenerator()
	provider := mock.NewMockProviderWithServices(embedder, generator)

	dataDir := t.TempDir()
	service, err := NewService(repos.Assets, repos.Chunks, repos.Notes, index, provider, Config{DataDir: dataDir})
	require.NoError(t, err)

	return &serviceFixture{
		service:   service,
		repos:     repos,
		index:     index,
		embedder:  embedder,
		generator: generator,
		dataDir:   dataDir,
	}
}

func (fx *serviceFixture) seedChunks(t *testing.T) {
	t.Helper()
	rows := []*core.Chunk{
		{Id: "c1", AssetId: "asset1", SubjectId: "bio101", PageNum: 1, StartBlock: 0, EndBlock: 1, Text: "Cells divide by mitosis."},
		{Id: "c2", AssetId: "asset1", SubjectId: "bio101", PageNum: 2, StartBlock: 0, EndBlock: 1, Text: "Meiosis halves the chromosomes."},
	}
	require.NoError(t, fx.repos.Chunks.UpsertChunks(context.Background(), rows))
}

func TestNewService(t *testing.T) {
	repos, err := sqlite.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Backend.Close() })
	provider := mock.NewMockProvider()
	index := &fakeVectorIndex{}
	cfg := Config{DataDir: t.TempDir()}

	t.Run("valid configuration", func(t *testing.T) {
		service, err := NewService(repos.Assets, repos.Chunks, repos.Notes, index, provider, cfg)
		require.NoError(t, err)
		assert.NotNil(t, service)
	})

	t.Run("nil asset repository", func(t *testing.T) {
		_, err := NewService(nil, repos.Chunks, repos.Notes, index, provider, cfg)
		assert.Equal(t, ErrAssetRepositoryRequired, err)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewService(repos.Assets, nil, repos.Notes, index, provider, cfg)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil notes repository", func(t *testing.T) {
		_, err := NewService(repos.Assets, repos.Chunks, nil, index, provider, cfg)
		assert.Equal(t, ErrNotesRepositoryRequired, err)
	})

	t.Run("nil vector index", func(t *testing.T) {
		_, err := NewService(repos.Assets, repos.Chunks, repos.Notes, nil, provider, cfg)
		assert.Equal(t, ErrVectorIndexRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewService(repos.Assets, repos.Chunks, repos.Notes, index, nil, cfg)
		assert.Equal(t, ErrProviderRequired, err)
	})

	t.Run("missing data dir", func(t *testing.T) {
		_, err := NewService(repos.Assets, repos.Chunks, repos.Notes, index, provider, Config{})
		assert.Equal(t, ErrDataDirRequired, err)
	})
}

func TestSaveFirstVersion(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	md := "# Intro\nAlpha beta.\n\n## Details\nGamma delta."

	res, err := fx.service.Save(ctx, "bio101", "asset1", "Cell Notes", md, []string{"https://example.com/cells"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 2, res.ChunkCount)
	assert.NotEmpty(t, res.NotesID)

	wantPath := filepath.Join(fx.dataDir, "subjects", "bio101", "notes", res.NotesID+"_v1.md")
	assert.Equal(t, wantPath, res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, md, string(data))

	stored, err := fx.repos.Notes.GetNotes(ctx, res.NotesID)
	require.NoError(t, err)
	assert.Equal(t, "Cell Notes", stored.Title)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, []string{"https://example.com/cells"}, stored.WebURLs)

	rows, err := fx.repos.Notes.ListNotesChunks(ctx, res.NotesID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.NotesChunkID(res.NotesID, "Intro", 0, 0), rows[0].Id)
	assert.Equal(t, "Intro", rows[0].SectionTitle)
	assert.Equal(t, "Alpha beta.", rows[0].Text)
	assert.Equal(t, "Details", rows[1].SectionTitle)

	require.Len(t, fx.index.upserts, 1)
	points := fx.index.upserts[0]
	require.Len(t, points, 2)
	first := points[0]
	assert.Equal(t, qdrant.PointID(qdrant.NotesIdentity(rows[0].Id)), first.ID)
	assert.Equal(t, qdrant.SourceTypeNotes, first.Payload["source_type"])
	assert.Equal(t, res.NotesID, first.Payload["notes_id"])
	assert.Equal(t, 1, first.Payload["version"])
	assert.Equal(t, "Cell Notes (v1)", first.Payload["source_label"])
	assert.Equal(t, rows[0].Id, first.Payload["chunk_id"])
	assert.Equal(t, "Intro", first.Payload["section_title"])
	assert.Len(t, first.Vector, 4)

	assert.Empty(t, fx.index.deleted)
}

func TestSaveSupersedesPriorVersion(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	res1, err := fx.service.Save(ctx, "bio101", "asset1", "Cell Notes", "# A\nfirst", nil)
	require.NoError(t, err)
	res2, err := fx.service.Save(ctx, "bio101", "asset1", "Cell Notes", "# A\nsecond", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res2.Version)
	assert.NotEqual(t, res1.NotesID, res2.NotesID)
	assert.Equal(t, []string{res1.NotesID}, fx.index.deleted)

	// The superseded points are removed before the new ones land.
	require.Len(t, fx.index.ops, 3)
	assert.Equal(t, "delete:"+res1.NotesID, fx.index.ops[1])
	assert.True(t, strings.HasPrefix(fx.index.ops[2], "upsert:"))

	// Both versions stay in the catalog.
	versions, err := fx.repos.Notes.ListNotesByAsset(ctx, "bio101", "asset1")
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	latest, err := fx.repos.Notes.GetLatestNotes(ctx, "bio101", "asset1")
	require.NoError(t, err)
	assert.Equal(t, res2.NotesID, latest.Id)
}

func TestSaveDefaultsTitle(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	res, err := fx.service.Save(ctx, "bio101", "asset1", "   ", "# A\nbody", nil)
	require.NoError(t, err)

	stored, err := fx.repos.Notes.GetNotes(ctx, res.NotesID)
	require.NoError(t, err)
	assert.Equal(t, "Study Notes", stored.Title)
	assert.Equal(t, "Study Notes (v1)", fx.index.upserts[0][0].Payload["source_label"])
}

func TestSaveEmptyMarkdown(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	_, err := fx.service.Save(ctx, "bio101", "asset1", "T", "", nil)
	assert.ErrorIs(t, err, ErrEmptyNotes)

	_, err = fx.service.Save(ctx, "bio101", "asset1", "T", "   \n\t", nil)
	assert.ErrorIs(t, err, ErrEmptyNotes)
}

func TestSaveUnknownAsset(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.Save(context.Background(), "bio101", "ghost", "T", "# A\nbody", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveSubjectMismatch(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.Save(context.Background(), "chem101", "asset1", "T", "# A\nbody", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveEmbedderFailure(t *testing.T) {
	fx := newServiceFixture(t)
	fx.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	_, err := fx.service.Save(context.Background(), "bio101", "asset1", "T", "# A\nbody", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed notes chunks")
	assert.Empty(t, fx.index.upserts)
}

func TestSaveDeleteFailureAborts(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	_, err := fx.service.Save(ctx, "bio101", "asset1", "T", "# A\nfirst", nil)
	require.NoError(t, err)

	fx.index.deleteErr = errors.New("qdrant unreachable")
	_, err = fx.service.Save(ctx, "bio101", "asset1", "T", "# A\nsecond", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete superseded points")
	assert.Len(t, fx.index.upserts, 1)
}

func TestGenerate(t *testing.T) {
	fx := newServiceFixture(t)
	fx.seedChunks(t)
	fx.generator.Responses = []string{"# Cell Division\nMitosis and meiosis."}
	ctx := context.Background()

	res, err := fx.service.Generate(ctx, "bio101", "asset1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 1, res.ChunkCount)

	prompt := fx.generator.Prompts()[0]
	assert.Contains(t, prompt, "[page 1] Cells divide by mitosis.")
	assert.Contains(t, prompt, "[page 2] Meiosis halves the chromosomes.")
	assert.Contains(t, prompt, "about 8000 characters (minimum 6000)")

	// The title comes from the asset filename.
	stored, err := fx.repos.Notes.GetNotes(ctx, res.NotesID)
	require.NoError(t, err)
	assert.Equal(t, "lecture3", stored.Title)
	assert.Equal(t, "lecture3 (v1)", fx.index.upserts[0][0].Payload["source_label"])

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "# Cell Division\nMitosis and meiosis.", string(data))
}

func TestGenerateNoChunks(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.Generate(context.Background(), "bio101", "asset1")
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestGenerateGeneratorFailure(t *testing.T) {
	fx := newServiceFixture(t)
	fx.seedChunks(t)
	fx.generator.GenerateFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("model offline")
	}
	ctx := context.Background()

	_, err := fx.service.Generate(ctx, "bio101", "asset1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate notes")

	versions, err := fx.repos.Notes.ListNotesByAsset(ctx, "bio101", "asset1")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestGenerateEmptyResponse(t *testing.T) {
	fx := newServiceFixture(t)
	fx.seedChunks(t)
	fx.generator.Responses = []string{"   "}

	_, err := fx.service.Generate(context.Background(), "bio101", "asset1")
	assert.ErrorIs(t, err, ErrEmptyNotes)
}

func TestSlideContext(t *testing.T) {
	chunks := []*core.Chunk{
		{PageNum: 1, Text: "one"},
		{PageNum: 2, Text: "two"},
	}
	assert.Equal(t, "[page 1] one\n\n[page 2] two", slideContext(chunks, 100))
	assert.Equal(t, "[page 1] one", slideContext(chunks, 12))
}
