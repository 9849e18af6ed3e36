package answer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage/sqlite"
	"github.com/poiesic/lectern/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnswerIndex routes searches by their filter: notes queries see the
// notes points, everything else sees the slide points.
type fakeAnswerIndex struct {
	count     int64
	countErr  error
	searchErr error
	notesErr  error
	slides    []qdrant.ScoredPoint
	notes     []qdrant.ScoredPoint

	// slidesOnlyUnfiltered hides the slide points from subject-filtered
	// searches, forcing the retry path.
	slidesOnlyUnfiltered bool

	requests []qdrant.SearchRequest
}

func (f *fakeAnswerIndex) Collection() string { return "study_chunks" }

func (f *fakeAnswerIndex) Count(context.Context) (int64, error) { return f.count, f.countErr }

func (f *fakeAnswerIndex) Search(_ context.Context, req qdrant.SearchRequest) ([]qdrant.ScoredPoint, error) {
	f.requests = append(f.requests, req)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	forNotes, filtered := false, false
	for _, cond := range req.Filter {
		switch cond.Key {
		case "source_type":
			forNotes = true
		case "subject_id":
			filtered = true
		}
	}
	if forNotes {
		return f.notes, f.notesErr
	}
	if f.slidesOnlyUnfiltered && filtered {
		return nil, nil
	}
	return f.slides, nil
}

type fakeWebClient struct {
	results []web.Result
	err     error
	queries []string
}

func (f *fakeWebClient) Search(_ context.Context, query string) ([]web.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func slideHitPoint(chunkID string, page int, score float64) qdrant.ScoredPoint {
	return qdrant.ScoredPoint{ID: chunkID, Score: score, Payload: map[string]any{
		"subject_id":  "bio101",
		"asset_id":    "asset1",
		"page_num":    page,
		"image_path":  "/data/pages/page_0002.png",
		"source_type": qdrant.SourceTypeSlide,
		"source":      "slides.pdf",
		"chunk_id":    chunkID,
		"text":        "Text for " + chunkID,
	}}
}

func notesHitPoint(chunkID string, score float64) qdrant.ScoredPoint {
	return qdrant.ScoredPoint{ID: chunkID, Score: score, Payload: map[string]any{
		"subject_id":    "bio101",
		"asset_id":      "asset1",
		"page_num":      0,
		"source_type":   qdrant.SourceTypeNotes,
		"source":        "Cell Notes (v1)",
		"source_label":  "Cell Notes (v1)",
		"chunk_id":      chunkID,
		"notes_id":      "notes1",
		"version":       1,
		"section_title": "Summary",
		"text":          "Notes content",
	}}
}

type answererFixture struct {
	answerer  *Answerer
	index     *fakeAnswerIndex
	repos     *sqlite.MemoryRepositories
	embedder  *mock.MockEmbedder
	generator *mock.MockGenerator
}

func newAnswererFixture(t *testing.T, cfg Config, opts ...Option) *answererFixture {
	t.Helper()
	repos, err := sqlite.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Backend.Close() })

	index := &fakeAnswerIndex{count: 1}
	embedder := mock.NewMockEmbedder()
	embedder.Dim = 4
	generator := mock.NewMockGenerator()
	provider := mock.NewMockProviderWithServices(embedder, generator)

	answerer, err := NewAnswerer(index, repos.Chunks, provider, cfg, opts...)
	require.NoError(t, err)

	return &answererFixture{
		answerer:  answerer,
		index:     index,
		repos:     repos,
		embedder:  embedder,
		generator: generator,
	}
}

func TestNewAnswerer(t *testing.T) {
	repos, err := sqlite.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Backend.Close() })
	provider := mock.NewMockProvider()
	index := &fakeAnswerIndex{}

	t.Run("valid configuration", func(t *testing.T) {
		answerer, err := NewAnswerer(index, repos.Chunks, provider, Config{})
		require.NoError(t, err)
		assert.NotNil(t, answerer)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewAnswerer(nil, repos.Chunks, provider, Config{})
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewAnswerer(index, nil, provider, Config{})
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewAnswerer(index, repos.Chunks, nil, Config{})
		assert.Equal(t, ErrProviderRequired, err)
	})
}

func TestAskAnswersFromSlides(t *testing.T) {
	fx := newAnswererFixture(t, Config{MinScore: 0.2})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 2, 0.9)}
	fx.generator.Responses = []string{"It is covered on page 2."}

	ans, err := fx.answerer.Ask(context.Background(), Question{
		SubjectID: "bio101",
		Text:      "Who is the instructor?",
		TopK:      3,
	})
	require.NoError(t, err)

	assert.Equal(t, "It is covered on page 2.", ans.Text)
	assert.False(t, ans.UsedWeb)

	require.Len(t, ans.Citations, 1)
	cite := ans.Citations[0]
	assert.Equal(t, CitationSlide, cite.Type)
	assert.Equal(t, "chunk1", cite.ChunkID)
	assert.Equal(t, "asset1", cite.AssetID)
	assert.Equal(t, "slides.pdf", cite.Source)
	assert.Equal(t, 2, cite.Page)
	assert.Equal(t, "Text for chunk1", cite.Quote)
	assert.Equal(t, "/data/pages/page_0002.png", cite.ImagePath)
	assert.InDelta(t, 0.9, cite.Score, 1e-9)

	assert.Equal(t, 1, ans.Debug.HitCountRaw)
	assert.Equal(t, 1, ans.Debug.HitCountAfterFilter)
	assert.Equal(t, 3, ans.Debug.TopK)
	assert.Equal(t, 4, ans.Debug.QueryEmbeddingDim)
	assert.Equal(t, "study_chunks", ans.Debug.CollectionName)
	assert.Equal(t, ReasonWebDisabled, ans.Debug.JudgeReason)
	require.Len(t, ans.Debug.TopHitsPreview, 1)
	assert.Equal(t, "chunk1", ans.Debug.TopHitsPreview[0].ChunkID)

	// The prompt carries the labeled context block.
	require.Len(t, fx.generator.Prompts(), 1)
	assert.Contains(t, fx.generator.Prompts()[0], "[chunk:chunk1] (asset=slides.pdf, page=2)")
	assert.Contains(t, fx.generator.Prompts()[0], "Question: Who is the instructor?")
}

func TestAskMergesNotesHits(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.9)}
	fx.index.notes = []qdrant.ScoredPoint{notesHitPoint("noteschunk1", 0.8)}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)

	assert.Equal(t, 2, ans.Debug.HitCountRaw)
	require.Len(t, ans.Citations, 2)

	types := map[string]Citation{}
	for _, c := range ans.Citations {
		types[c.Type] = c
	}
	require.Contains(t, types, CitationSlide)
	require.Contains(t, types, CitationNotes)

	notesCite := types[CitationNotes]
	assert.Equal(t, "notes1", notesCite.NotesID)
	assert.Equal(t, "Cell Notes (v1)", notesCite.Source)
	assert.Equal(t, "Summary", notesCite.Section)
	assert.Equal(t, "noteschunk1", notesCite.ChunkID)
}

func TestAskEmptyIndex(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.count = 0

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, emptyIndexMessage, ans.Text)
	assert.Empty(t, ans.Citations)
	assert.Empty(t, fx.index.requests)
}

func TestAskCountFailureTreatedAsEmpty(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.countErr = errors.New("qdrant unreachable")

	ans, err := fx.answerer.Ask(context.Background(), Question{Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, emptyIndexMessage, ans.Text)
}

func TestAskNoHits(t *testing.T) {
	fx := newAnswererFixture(t, Config{})

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, notFoundMessage, ans.Text)
	assert.Empty(t, ans.Citations)
	assert.Equal(t, 0, ans.Debug.HitCountRaw)
	assert.Equal(t, ReasonWebDisabled, ans.Debug.JudgeReason)
}

func TestAskRetriesSubjectFilter(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.7)}
	fx.index.slidesOnlyUnfiltered = true

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "ghost", Text: "question"})
	require.NoError(t, err)

	assert.True(t, ans.Debug.FilterRetriedWithoutSubject)
	assert.Equal(t, 1, ans.Debug.HitCountRaw)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "chunk1", ans.Citations[0].ChunkID)
}

func TestAskMinScoreFallback(t *testing.T) {
	fx := newAnswererFixture(t, Config{MinScore: 0.5})
	fx.index.slides = []qdrant.ScoredPoint{
		slideHitPoint("chunk1", 1, 0.20),
		slideHitPoint("chunk2", 2, 0.10),
	}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)

	// Everything scored below min_score, so the unfiltered set is kept.
	assert.Equal(t, 2, ans.Debug.HitCountRaw)
	assert.Equal(t, 2, ans.Debug.HitCountAfterFilter)
	assert.Len(t, ans.Citations, 2)
}

func TestAskMinScoreFilters(t *testing.T) {
	fx := newAnswererFixture(t, Config{MinScore: 0.5})
	fx.index.slides = []qdrant.ScoredPoint{
		slideHitPoint("chunk1", 1, 0.90),
		slideHitPoint("chunk2", 2, 0.10),
	}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)

	assert.Equal(t, 2, ans.Debug.HitCountRaw)
	assert.Equal(t, 1, ans.Debug.HitCountAfterFilter)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "chunk1", ans.Citations[0].ChunkID)
}

func TestAskExpandsNeighbors(t *testing.T) {
	fx := newAnswererFixture(t, Config{NeighborWindow: 1, MaxNeighborChunks: 6})
	rows := []*core.Chunk{
		{Id: "c-p1-a", AssetId: "asset1", SubjectId: "bio101", PageNum: 1, StartBlock: 0, EndBlock: 1, Text: "before"},
		{Id: "c-p2-a", AssetId: "asset1", SubjectId: "bio101", PageNum: 2, StartBlock: 0, EndBlock: 1, Text: "hit"},
		{Id: "c-p3-a", AssetId: "asset1", SubjectId: "bio101", PageNum: 3, StartBlock: 0, EndBlock: 1, Text: "after"},
	}
	require.NoError(t, fx.repos.Chunks.UpsertChunks(context.Background(), rows))
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("c-p2-a", 2, 0.9)}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)

	assert.Equal(t, 2, ans.Debug.NeighborsAdded)
	require.Len(t, ans.Citations, 3)
	assert.Equal(t, "c-p2-a", ans.Citations[0].ChunkID)

	// Neighbors inherit the filename of their asset's scored hit.
	assert.Equal(t, "c-p1-a", ans.Citations[1].ChunkID)
	assert.Equal(t, "slides.pdf", ans.Citations[1].Source)
	assert.Contains(t, fx.generator.Prompts()[0], "before")
	assert.Contains(t, fx.generator.Prompts()[0], "after")
}

func TestAskWebFallback(t *testing.T) {
	webClient := &fakeWebClient{results: []web.Result{
		{Title: "Web", URL: "http://example.com", Snippet: "Snippet", Source: "example.com"},
	}}
	fx := newAnswererFixture(t, Config{WebMaxQueries: 1}, WithWebSearch(webClient))

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "subj", Text: "question"})
	require.NoError(t, err)

	assert.True(t, ans.UsedWeb)
	assert.Equal(t, ReasonNoHits, ans.Debug.JudgeReason)
	assert.Equal(t, 1, ans.Debug.WebQueriesUsed)
	assert.Len(t, webClient.queries, 1)

	require.Len(t, ans.Citations, 1)
	cite := ans.Citations[0]
	assert.Equal(t, CitationWeb, cite.Type)
	assert.Equal(t, "Web", cite.Title)
	assert.Equal(t, "http://example.com", cite.URL)
	assert.Equal(t, "example.com", cite.Source)
	assert.Equal(t, "Snippet", cite.Quote)

	assert.Contains(t, fx.generator.Prompts()[0], "Web results:")
	assert.NotEqual(t, notFoundMessage, ans.Text)
}

func TestAskWebFailure(t *testing.T) {
	webClient := &fakeWebClient{err: errors.New("serpapi down")}
	fx := newAnswererFixture(t, Config{}, WithWebSearch(webClient))

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "subj", Text: "question"})
	require.NoError(t, err)

	assert.False(t, ans.UsedWeb)
	assert.Contains(t, ans.Debug.WebError, "serpapi down")
	assert.Equal(t, notFoundMessage, ans.Text)
}

func TestAskForceWebBeatsConfidentRetrieval(t *testing.T) {
	webClient := &fakeWebClient{results: []web.Result{
		{Title: "Web", URL: "http://example.com", Snippet: "s", Source: "example.com"},
	}}
	fx := newAnswererFixture(t, Config{JudgeMinScore: 0.55}, WithWebSearch(webClient))
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.95)}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question", ForceWeb: true})
	require.NoError(t, err)
	assert.Equal(t, ReasonForcedByUser, ans.Debug.JudgeReason)
	assert.True(t, ans.UsedWeb)
}

func TestAskConfidentRetrievalSkipsWeb(t *testing.T) {
	webClient := &fakeWebClient{results: []web.Result{
		{Title: "Web", URL: "http://example.com", Snippet: "s", Source: "example.com"},
	}}
	fx := newAnswererFixture(t, Config{JudgeMinScore: 0.55}, WithWebSearch(webClient))
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.95)}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, ReasonRAGConfident, ans.Debug.JudgeReason)
	assert.False(t, ans.UsedWeb)
	assert.Empty(t, webClient.queries)
}

func TestAskGeneratorFailure(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.9)}
	fx.generator.GenerateFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("model offline")
	}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)

	assert.Equal(t, generationFailedMessage, ans.Text)
	assert.Contains(t, ans.Debug.GenerationError, "model offline")

	// Citations still point at what would have answered.
	require.Len(t, ans.Citations, 1)
}

func TestAskGeneratorEmptyResponse(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.9)}
	fx.generator.GenerateFunc = func(context.Context, string, string) (string, error) {
		return "   ", nil
	}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, generationFailedMessage, ans.Text)
	assert.Contains(t, ans.Debug.GenerationError, "empty response")
}

func TestAskEmbedderFailure(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	ans, err := fx.answerer.Ask(context.Background(), Question{Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, generationFailedMessage, ans.Text)
	assert.Contains(t, ans.Debug.GenerationError, "embedding service down")
}

func TestAskNonFiniteEmbeddingRejected(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.9)}
	fx.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{float32(math.NaN()), 0.5, 0.5, float32(math.Inf(1))}}, nil
	}

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)

	// The bad vector never reaches the index; the failure surfaces as a
	// degraded answer, not a completion built from whatever came back.
	assert.Empty(t, fx.index.requests)
	assert.Equal(t, generationFailedMessage, ans.Text)
	assert.Contains(t, ans.Debug.GenerationError, "invalid vector")
	assert.True(t, ans.Debug.QueryEmbeddingHasNaN)
	assert.Empty(t, ans.Citations)
	assert.Empty(t, fx.generator.Prompts())
}

func TestAskSearchFailure(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.searchErr = errors.New("connection refused")

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, generationFailedMessage, ans.Text)
	assert.Contains(t, ans.Debug.GenerationError, "connection refused")
}

func TestAskNotesSearchFailureTolerated(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	fx.index.slides = []qdrant.ScoredPoint{slideHitPoint("chunk1", 1, 0.9)}
	fx.index.notesErr = errors.New("notes shard down")

	ans, err := fx.answerer.Ask(context.Background(), Question{SubjectID: "bio101", Text: "question"})
	require.NoError(t, err)
	assert.NotEqual(t, generationFailedMessage, ans.Text)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "chunk1", ans.Citations[0].ChunkID)
}

func TestAskEmptyQuestion(t *testing.T) {
	fx := newAnswererFixture(t, Config{})
	_, err := fx.answerer.Ask(context.Background(), Question{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestMergeHits(t *testing.T) {
	slides := []retrieval.Hit{
		{ChunkID: "a", Score: 0.7},
		{ChunkID: "b", Score: 0.4},
	}
	notes := []retrieval.Hit{
		{ChunkID: "a", Score: 0.9, SourceType: "notes"},
		{ChunkID: "c", Score: 0.5},
	}

	merged := mergeHits(slides, notes)
	require.Len(t, merged, 3)

	// Duplicate chunk a keeps the higher-scoring copy, order is by score.
	assert.Equal(t, "a", merged[0].ChunkID)
	assert.InDelta(t, 0.9, merged[0].Score, 1e-9)
	assert.Equal(t, "notes", merged[0].SourceType)
	assert.Equal(t, "c", merged[1].ChunkID)
	assert.Equal(t, "b", merged[2].ChunkID)
}
