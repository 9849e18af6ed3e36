package answer

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/web"
)

// User-facing fallback texts. Operational failures never surface as errors;
// they become one of these answers plus debug detail.
const (
	emptyIndexMessage = "I don't have any indexed content for this subject yet. " +
		"Index your uploads first. If OCR blocks are empty, install or enable Tesseract OCR."
	notFoundMessage         = "Answer not found in your notes."
	generationFailedMessage = "Could not generate an answer. " +
		"Check that the language model is reachable and try again."
)

// Citation types.
const (
	CitationSlide = "slide"
	CitationNotes = "notes"
	CitationWeb   = "web"
)

const (
	defaultTopK          = 8
	defaultWebMaxQueries = 2
	topHitsPreviewLen    = 5

	// quoteChars bounds the quote carried per citation.
	quoteChars = 240
)

// Index is the slice of the vector index the answerer needs.
type Index interface {
	retrieval.Index
	Count(ctx context.Context) (int64, error)
}

// WebSearcher runs one web query. *web.Client satisfies it.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]web.Result, error)
}

// Question is one ask request.
type Question struct {
	// SubjectID scopes retrieval; empty searches every subject.
	SubjectID string

	// Text is the user's question.
	Text string

	// TopK overrides the configured hit budget when positive.
	TopK int

	// ForceWeb asks the judge to search the web regardless of retrieval
	// strength.
	ForceWeb bool
}

// Citation points at the material behind part of an answer.
type Citation struct {
	Type      string  `json:"type"`
	AssetID   string  `json:"asset_id,omitempty"`
	NotesID   string  `json:"notes_id,omitempty"`
	Source    string  `json:"source,omitempty"`
	Title     string  `json:"title,omitempty"`
	URL       string  `json:"url,omitempty"`
	Page      int     `json:"page,omitempty"`
	Section   string  `json:"section,omitempty"`
	ChunkID   string  `json:"chunk_id,omitempty"`
	Quote     string  `json:"quote,omitempty"`
	ImagePath string  `json:"image_path,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// Answer is the assembled response to one question.
type Answer struct {
	Text      string          `json:"answer"`
	Citations []Citation      `json:"citations"`
	UsedWeb   bool            `json:"used_web"`
	Debug     retrieval.Debug `json:"debug"`
}

// Config carries the retrieval and web budgets for one answerer.
type Config struct {
	// TopK is the similarity hit budget per search. Zero means 8.
	TopK int

	// MinScore drops hits scoring below it. When every hit would be
	// dropped the unfiltered set is kept instead. Zero disables the
	// filter.
	MinScore float64

	// NeighborWindow and MaxNeighborChunks bound context expansion. A
	// zero window disables expansion.
	NeighborWindow    int
	MaxNeighborChunks int

	// WebMaxQueries caps web queries per question. Zero means 2.
	WebMaxQueries int

	// WebSnippetBudget caps total web snippet characters in the prompt.
	// Zero means no cap.
	WebSnippetBudget int

	// JudgeMinHits and JudgeMinScore are the confidence gates above which
	// the judge skips the web. Zero disables a gate.
	JudgeMinHits  int
	JudgeMinScore float64
}

func (c Config) normalize() Config {
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.WebMaxQueries <= 0 {
		c.WebMaxQueries = defaultWebMaxQueries
	}
	return c
}

// Answerer turns a question into a grounded answer with citations.
type Answerer struct {
	index     Index
	searcher  *retrieval.Searcher
	expander  *retrieval.Expander
	embedder  ai.Embedder
	generator ai.Generator
	webClient WebSearcher
	config    Config
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithWebSearch installs a web search client. Without one the judge reports
// web_disabled and every answer stays inside the index.
func WithWebSearch(client WebSearcher) Option {
	return func(a *Answerer) error {
		a.webClient = client
		return nil
	}
}

// NewAnswerer creates a new answerer.
func NewAnswerer(
	index Index,
	chunks storage.ChunkRepository,
	provider ai.Provider,
	config Config,
	opts ...Option,
) (*Answerer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	a := &Answerer{
		index:     index,
		embedder:  provider.Embedder(),
		generator: provider.Generator(),
		config:    config.normalize(),
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	// Built after the options so they share the configured logger.
	searcher, err := retrieval.NewSearcher(index, chunks, retrieval.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	expander, err := retrieval.NewExpander(chunks, retrieval.WithExpanderLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.searcher = searcher
	a.expander = expander

	return a, nil
}

// Ask answers one question from the indexed material, optionally
// supplemented by web search. Operational failures come back as an Answer
// with fallback text and debug detail, not as an error; errors are reserved
// for invalid requests.
func (a *Answerer) Ask(ctx context.Context, q Question) (*Answer, error) {
	question := strings.TrimSpace(q.Text)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	topK := q.TopK
	if topK <= 0 {
		topK = a.config.TopK
	}

	ans := &Answer{}
	debug := &ans.Debug
	debug.MinScore = a.config.MinScore

	// An empty collection means nothing was ever indexed; answer with
	// onboarding guidance instead of searching.
	count, err := a.index.Count(ctx)
	if err != nil {
		a.logger.Warn("point count failed, treating collection as empty", "err", err)
		count = 0
	}
	if count == 0 {
		ans.Text = emptyIndexMessage
		return ans, nil
	}

	vectors, err := a.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		a.logger.Error("query embedding failed", "err", err)
		debug.GenerationError = err.Error()
		ans.Text = generationFailedMessage
		return ans, nil
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		a.logger.Warn("embedder returned no query vector")
		ans.Text = emptyIndexMessage
		return ans, nil
	}
	vector := vectors[0]

	slideHits, err := a.searcher.SearchSlides(ctx, vector, q.SubjectID, topK, debug)
	if err != nil {
		a.logger.Error("retrieval failed", "subject_id", q.SubjectID, "err", err)
		debug.GenerationError = err.Error()
		ans.Text = generationFailedMessage
		return ans, nil
	}
	notesHits, err := a.searcher.SearchNotes(ctx, vector, q.SubjectID, topK)
	if err != nil {
		// Slide hits alone still make an answer.
		a.logger.Warn("notes search failed", "subject_id", q.SubjectID, "err", err)
		notesHits = nil
	}

	merged := mergeHits(slideHits, notesHits)
	debug.HitCountRaw = len(merged)

	hits := filterByScore(merged, a.config.MinScore)
	if len(hits) == 0 && len(merged) > 0 {
		a.logger.Warn("all hits below min_score, keeping unfiltered set",
			"min_score", a.config.MinScore,
			"hits", len(merged))
		hits = merged
	}
	debug.HitCountAfterFilter = len(hits)
	debug.RecordTopHits(hits, topHitsPreviewLen)

	topScore := 0.0
	if len(hits) > 0 {
		topScore = hits[0].Score
	}
	decision := Judge(JudgeInput{
		Question: question,
		Enabled:  a.webClient != nil,
		Force:    q.ForceWeb,
		HitCount: len(hits),
		TopScore: topScore,
		MinHits:  a.config.JudgeMinHits,
		MinScore: a.config.JudgeMinScore,
	})
	debug.JudgeReason = decision.Reason

	var webResults []web.Result
	if decision.Search {
		webResults = a.searchWeb(ctx, question, q.SubjectID, debug)
	}
	ans.UsedWeb = len(webResults) > 0

	if len(hits) == 0 && len(webResults) == 0 {
		ans.Text = notFoundMessage
		return ans, nil
	}

	expanded, added, err := a.expander.Expand(ctx, hits, a.config.NeighborWindow, a.config.MaxNeighborChunks)
	if err != nil {
		// Expansion is an enrichment; the hits alone still answer.
		a.logger.Warn("neighbor expansion failed", "err", err)
		expanded, added = hits, 0
	}
	debug.NeighborsAdded = added

	prompt := buildPrompt(question, expanded, webResults, a.config.WebSnippetBudget)
	text, err := a.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		a.logger.Error("answer generation failed", "err", err)
		debug.GenerationError = err.Error()
		text = generationFailedMessage
	} else if strings.TrimSpace(text) == "" {
		a.logger.Error("answer generation returned empty text")
		debug.GenerationError = "empty response from generator"
		text = generationFailedMessage
	}
	ans.Text = text
	ans.Citations = a.citations(expanded, hits, webResults)

	a.logger.Info("question answered",
		"subject_id", q.SubjectID,
		"hits", len(hits),
		"neighbors", added,
		"web_results", len(webResults),
		"judge_reason", decision.Reason)
	return ans, nil
}

// searchWeb runs up to the configured number of queries and merges their
// results. The first failure stops the loop; its message lands in debug and
// any results already gathered are kept.
func (a *Answerer) searchWeb(ctx context.Context, question, subjectID string, debug *retrieval.Debug) []web.Result {
	queries := web.BuildQueries(question, subjectID, a.config.WebMaxQueries)
	results := make([]web.Result, 0)
	for _, query := range queries {
		found, err := a.webClient.Search(ctx, query)
		if err != nil {
			a.logger.Warn("web search failed", "query", query, "err", err)
			debug.WebError = err.Error()
			break
		}
		debug.WebQueriesUsed++
		results = append(results, found...)
	}
	return web.Dedupe(results)
}

// mergeHits concatenates slide and notes hits, keeps the higher-scoring copy
// of any duplicated chunk id, and orders the result by score.
func mergeHits(slides, notes []retrieval.Hit) []retrieval.Hit {
	merged := make([]retrieval.Hit, 0, len(slides)+len(notes))
	position := make(map[string]int, len(slides)+len(notes))
	for _, group := range [][]retrieval.Hit{slides, notes} {
		for _, h := range group {
			if i, ok := position[h.ChunkID]; ok {
				if h.Score > merged[i].Score {
					merged[i] = h
				}
				continue
			}
			position[h.ChunkID] = len(merged)
			merged = append(merged, h)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged
}

func filterByScore(hits []retrieval.Hit, minScore float64) []retrieval.Hit {
	if minScore <= 0 {
		return hits
	}
	kept := make([]retrieval.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= minScore {
			kept = append(kept, h)
		}
	}
	return kept
}

// citations builds one citation per context chunk plus one per web result.
// Neighbor chunks carry no filename of their own, so the scored hits supply
// a per-asset fallback.
func (a *Answerer) citations(contextHits, scoredHits []retrieval.Hit, webResults []web.Result) []Citation {
	sourceByAsset := make(map[string]string, len(scoredHits))
	for _, h := range scoredHits {
		if h.AssetID == "" || h.Source == "" {
			continue
		}
		if _, ok := sourceByAsset[h.AssetID]; !ok {
			sourceByAsset[h.AssetID] = h.Source
		}
	}

	citations := make([]Citation, 0, len(contextHits)+len(webResults))
	seen := make(map[string]bool, len(contextHits))
	for _, h := range contextHits {
		if seen[h.ChunkID] {
			continue
		}
		seen[h.ChunkID] = true

		if h.IsNotes() {
			label := h.SourceLabel
			if label == "" {
				label = h.Source
			}
			citations = append(citations, Citation{
				Type:    CitationNotes,
				NotesID: h.NotesID,
				AssetID: h.AssetID,
				Source:  label,
				Section: h.SectionTitle,
				ChunkID: h.ChunkID,
				Quote:   clipChars(h.Text, quoteChars),
				Score:   h.Score,
			})
			continue
		}

		source := h.Source
		if source == "" {
			source = sourceByAsset[h.AssetID]
		}
		if source == "" {
			source = h.AssetID
		}
		citations = append(citations, Citation{
			Type:      CitationSlide,
			AssetID:   h.AssetID,
			Source:    source,
			Page:      h.PageNum,
			ChunkID:   h.ChunkID,
			Quote:     clipChars(h.Text, quoteChars),
			ImagePath: h.ImagePath,
			Score:     h.Score,
		})
	}

	for _, r := range webResults {
		citations = append(citations, Citation{
			Type:   CitationWeb,
			Title:  r.Title,
			URL:    r.URL,
			Source: r.Source,
			Quote:  clipChars(r.Snippet, quoteChars),
		})
	}
	return citations
}
