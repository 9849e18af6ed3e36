package retrieval

import (
	"context"
	"testing"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChunk(id, assetID string, page, start int) *core.Chunk {
	return &core.Chunk{
		Id:         id,
		AssetId:    assetID,
		SubjectId:  "bio101",
		PageNum:    page,
		StartBlock: start,
		EndBlock:   start + 1,
		Text:       "text of " + id,
	}
}

// newExpanderFixture seeds asset1 with chunks on pages 1 through 5 and a
// second asset that must never leak into asset1 expansions.
func newExpanderFixture(t *testing.T) (*Expander, *sqlite.MemoryRepositories) {
	t.Helper()
	repos := newTestChunks(t)
	rows := []*core.Chunk{
		seedChunk("c-p1-a", "asset1", 1, 0),
		seedChunk("c-p1-b", "asset1", 1, 1),
		seedChunk("c-p2-a", "asset1", 2, 0),
		seedChunk("c-p3-a", "asset1", 3, 0),
		seedChunk("c-p4-a", "asset1", 4, 0),
		seedChunk("c-p5-a", "asset1", 5, 0),
		seedChunk("c2-p2-a", "asset2", 2, 0),
	}
	require.NoError(t, repos.Chunks.UpsertChunks(context.Background(), rows))

	expander, err := NewExpander(repos.Chunks)
	require.NoError(t, err)
	return expander, repos
}

func hitForChunk(id string, page int) Hit {
	return Hit{ChunkID: id, AssetID: "asset1", SubjectID: "bio101", PageNum: page, Score: 0.9}
}

func addedIDs(expanded []Hit, hitCount int) []string {
	ids := make([]string, 0, len(expanded)-hitCount)
	for _, h := range expanded[hitCount:] {
		ids = append(ids, h.ChunkID)
	}
	return ids
}

func TestNewExpander(t *testing.T) {
	repos := newTestChunks(t)

	t.Run("valid configuration", func(t *testing.T) {
		expander, err := NewExpander(repos.Chunks)
		require.NoError(t, err)
		assert.NotNil(t, expander)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		expander, err := NewExpander(repos.Chunks, WithExpanderLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, expander)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewExpander(nil)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})
}

func TestExpandAddsNeighborPages(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	hits := []Hit{hitForChunk("c-p2-a", 2)}

	expanded, added, err := expander.Expand(context.Background(), hits, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	require.Len(t, expanded, 4)

	// Hits come first, untouched.
	assert.Equal(t, "c-p2-a", expanded[0].ChunkID)
	assert.Equal(t, []string{"c-p1-a", "c-p1-b", "c-p3-a"}, addedIDs(expanded, 1))

	// Neighbors carry text from the store and no score.
	assert.Equal(t, "text of c-p1-a", expanded[1].Text)
	assert.Zero(t, expanded[1].Score)
	assert.Equal(t, "asset1", expanded[1].AssetID)
}

func TestExpandOrdersByPageDistance(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	hits := []Hit{hitForChunk("c-p3-a", 3)}

	expanded, added, err := expander.Expand(context.Background(), hits, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, added)

	// Distance 1 pages before distance 2 pages, block order within a ring.
	assert.Equal(t,
		[]string{"c-p2-a", "c-p4-a", "c-p1-a", "c-p1-b", "c-p5-a"},
		addedIDs(expanded, 1))
}

func TestExpandCapsTotalAdditions(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	hits := []Hit{hitForChunk("c-p3-a", 3)}

	expanded, added, err := expander.Expand(context.Background(), hits, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"c-p2-a", "c-p4-a"}, addedIDs(expanded, 1))
}

func TestExpandDedupesAcrossHits(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	hits := []Hit{hitForChunk("c-p1-a", 1), hitForChunk("c-p3-a", 3)}

	expanded, added, err := expander.Expand(context.Background(), hits, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Page 2 sits in both windows but its chunk is added once, and chunks
	// on a hit's own page are never added.
	assert.Equal(t, []string{"c-p2-a", "c-p4-a"}, addedIDs(expanded, 2))
}

func TestExpandKeepsPagelessHits(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	hits := []Hit{
		{ChunkID: "noteschunk1", SourceType: "notes", Score: 0.8},
		hitForChunk("c-p2-a", 2),
	}

	expanded, added, err := expander.Expand(context.Background(), hits, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, "noteschunk1", expanded[0].ChunkID)
	assert.Equal(t, "c-p2-a", expanded[1].ChunkID)
}

func TestExpandDisabled(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	hits := []Hit{hitForChunk("c-p2-a", 2)}

	for _, tc := range []struct{ window, maxExtra int }{{0, 10}, {1, 0}, {-1, -1}} {
		expanded, added, err := expander.Expand(context.Background(), hits, tc.window, tc.maxExtra)
		require.NoError(t, err)
		assert.Zero(t, added)
		assert.Len(t, expanded, 1)
	}
}

func TestExpandEmptyHits(t *testing.T) {
	expander, _ := newExpanderFixture(t)
	expanded, added, err := expander.Expand(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Empty(t, expanded)
}

func TestExpandStorageError(t *testing.T) {
	expander, repos := newExpanderFixture(t)
	require.NoError(t, repos.Backend.Close())

	_, _, err := expander.Expand(context.Background(), []Hit{hitForChunk("c-p2-a", 2)}, 1, 10)
	assert.Error(t, err)
}
