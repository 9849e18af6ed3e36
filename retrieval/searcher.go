package retrieval

import (
	"context"
	"log/slog"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
)

// Index is the slice of the vector index the searcher depends on.
type Index interface {
	Collection() string
	Search(ctx context.Context, req qdrant.SearchRequest) ([]qdrant.ScoredPoint, error)
}

// Hit is one scored retrieval result with its payload decoded. Slide hits
// carry page and image fields; notes hits carry the notes version fields.
type Hit struct {
	ChunkID      string
	AssetID      string
	SubjectID    string
	NotesID      string
	Version      int
	SectionTitle string
	PageNum      int
	Text         string
	BBox         [4]float64
	Source       string
	SourceLabel  string
	SourceType   string
	ImagePath    string
	Score        float64
}

// IsNotes reports whether the hit came from generated notes rather than a
// slide chunk.
func (h Hit) IsNotes() bool {
	return h.SourceType == qdrant.SourceTypeNotes
}

// Searcher runs similarity queries against the vector index and hydrates the
// results from the relational store.
type Searcher struct {
	index  Index
	chunks storage.ChunkRepository
	logger *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index Index, chunks storage.ChunkRepository, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	s := &Searcher{
		index:  index,
		chunks: chunks,
		logger: slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchSlides finds the chunks nearest the query vector, scoped to one
// subject when subjectID is non-empty. A vector with NaN or Inf components
// is rejected before any search is issued. When the scoped search matches
// nothing it is retried exactly once without the filter, and the retry is
// recorded in debug. Hits without a chunk id are dropped; hits whose payload
// carries no text are hydrated from the chunk rows. A nil debug is allowed.
func (s *Searcher) SearchSlides(ctx context.Context, vector []float32, subjectID string, limit int, debug *Debug) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyQueryVector
	}
	if debug != nil {
		debug.CollectionName = s.index.Collection()
		debug.SelectedSubjectID = subjectID
		debug.FilterUsed = subjectID != ""
		debug.TopK = limit
		debug.RecordQueryEmbedding(vector)
	}
	if err := ai.ValidateVector(vector, 0); err != nil {
		s.logger.Error("rejecting query vector", "err", err)
		return nil, err
	}

	req := qdrant.SearchRequest{Vector: vector, Limit: limit}
	if subjectID != "" {
		req.Filter = []qdrant.Condition{qdrant.Match("subject_id", subjectID)}
	}
	points, err := s.index.Search(ctx, req)
	if err != nil {
		s.logger.Error("slide search failed", "subject_id", subjectID, "err", err)
		return nil, err
	}

	if len(points) == 0 && subjectID != "" {
		s.logger.Warn("subject filter matched nothing, retrying unfiltered",
			"subject_id", subjectID,
			"collection", s.index.Collection())
		if debug != nil {
			debug.FilterRetriedWithoutSubject = true
		}
		points, err = s.index.Search(ctx, qdrant.SearchRequest{Vector: vector, Limit: limit})
		if err != nil {
			s.logger.Error("unfiltered retry failed", "err", err)
			return nil, err
		}
	}

	hits := s.decode(points)
	s.hydrate(ctx, hits)
	s.logger.Debug("slide search completed",
		"subject_id", subjectID,
		"hits", len(hits))
	return hits, nil
}

// SearchNotes finds generated-notes chunks nearest the query vector. The
// source_type filter keeps slide chunks out; subjects without notes simply
// return no hits, so there is no unfiltered retry here.
func (s *Searcher) SearchNotes(ctx context.Context, vector []float32, subjectID string, limit int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyQueryVector
	}
	if err := ai.ValidateVector(vector, 0); err != nil {
		s.logger.Error("rejecting query vector", "err", err)
		return nil, err
	}

	filter := []qdrant.Condition{qdrant.Match("source_type", qdrant.SourceTypeNotes)}
	if subjectID != "" {
		filter = append(filter, qdrant.Match("subject_id", subjectID))
	}
	points, err := s.index.Search(ctx, qdrant.SearchRequest{Vector: vector, Limit: limit, Filter: filter})
	if err != nil {
		s.logger.Error("notes search failed", "subject_id", subjectID, "err", err)
		return nil, err
	}
	hits := s.decode(points)
	s.logger.Debug("notes search completed",
		"subject_id", subjectID,
		"hits", len(hits))
	return hits, nil
}

// decode converts index points to hits, dropping any point that lost its
// chunk id.
func (s *Searcher) decode(points []qdrant.ScoredPoint) []Hit {
	hits := make([]Hit, 0, len(points))
	dropped := 0
	for _, p := range points {
		hit, ok := hitFromPoint(p)
		if !ok {
			dropped++
			continue
		}
		hits = append(hits, hit)
	}
	if dropped > 0 {
		s.logger.Warn("dropped hits without chunk_id", "count", dropped)
	}
	return hits
}

// hydrate fills text, page, and bbox from the chunk rows for hits whose
// payload carries no text. Lookup failures leave the hits as the index
// returned them.
func (s *Searcher) hydrate(ctx context.Context, hits []Hit) {
	ids := make([]string, 0)
	for _, h := range hits {
		if h.Text == "" {
			ids = append(ids, h.ChunkID)
		}
	}
	if len(ids) == 0 {
		return
	}

	rows, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		s.logger.Warn("chunk hydration failed", "count", len(ids), "err", err)
		return
	}
	byID := make(map[string]*core.Chunk, len(rows))
	for _, row := range rows {
		byID[row.Id] = row
	}
	for i := range hits {
		row, ok := byID[hits[i].ChunkID]
		if !ok {
			continue
		}
		hits[i].Text = row.Text
		hits[i].PageNum = row.PageNum
		hits[i].BBox = row.BBox
		if hits[i].AssetID == "" {
			hits[i].AssetID = row.AssetId
		}
	}
}

func hitFromPoint(p qdrant.ScoredPoint) (Hit, bool) {
	chunkID := payloadString(p.Payload, "chunk_id")
	if chunkID == "" {
		return Hit{}, false
	}
	return Hit{
		ChunkID:      chunkID,
		AssetID:      payloadString(p.Payload, "asset_id"),
		SubjectID:    payloadString(p.Payload, "subject_id"),
		NotesID:      payloadString(p.Payload, "notes_id"),
		Version:      payloadInt(p.Payload, "version"),
		SectionTitle: payloadString(p.Payload, "section_title"),
		PageNum:      payloadInt(p.Payload, "page_num"),
		Text:         payloadString(p.Payload, "text"),
		Source:       payloadString(p.Payload, "source"),
		SourceLabel:  payloadString(p.Payload, "source_label"),
		SourceType:   payloadString(p.Payload, "source_type"),
		ImagePath:    payloadString(p.Payload, "image_path"),
		Score:        p.Score,
	}, true
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// payloadInt handles both decoded JSON numbers and values set in-process.
func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
