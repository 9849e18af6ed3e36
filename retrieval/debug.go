package retrieval

import "math"

// previewChars bounds the text carried per hit in a debug preview.
const previewChars = 80

// HitPreview is one entry of Debug.TopHitsPreview.
type HitPreview struct {
	Score   float64 `json:"score"`
	ChunkID string  `json:"chunk_id"`
	AssetID string  `json:"asset_id"`
	PageNum int     `json:"page_num"`
	Preview string  `json:"preview"`
}

// Debug is the retrieval trace attached to every answer. It records what was
// searched, what came back, and which fallbacks fired, so a thin answer can
// be diagnosed without re-running the query.
type Debug struct {
	CollectionName       string  `json:"collection_name"`
	SelectedSubjectID    string  `json:"selected_subject_id"`
	FilterUsed           bool    `json:"filter_used"`
	TopK                 int     `json:"top_k"`
	MinScore             float64 `json:"min_score"`
	QueryEmbeddingDim    int     `json:"query_embedding_dim"`
	QueryEmbeddingMin    float64 `json:"query_embedding_min"`
	QueryEmbeddingMax    float64 `json:"query_embedding_max"`
	QueryEmbeddingMean   float64 `json:"query_embedding_mean"`
	QueryEmbeddingHasNaN bool    `json:"query_embedding_has_nan"`

	HitCountRaw         int          `json:"hit_count_raw"`
	HitCountAfterFilter int          `json:"hit_count_after_filter"`
	TopHitsPreview      []HitPreview `json:"top_hits_preview"`

	// FilterRetriedWithoutSubject is set when the subject filter matched
	// nothing and the search was re-run unfiltered.
	FilterRetriedWithoutSubject bool `json:"filter_retried_without_subject"`

	NeighborsAdded  int    `json:"neighbors_added"`
	JudgeReason     string `json:"judge_reason,omitempty"`
	WebQueriesUsed  int    `json:"web_queries_used"`
	WebError        string `json:"web_error,omitempty"`
	GenerationError string `json:"generation_error,omitempty"`
}

// RecordQueryEmbedding captures the shape of the query vector. A dimension
// mismatch or NaN here explains empty results faster than any index log.
func (d *Debug) RecordQueryEmbedding(vector []float32) {
	d.QueryEmbeddingDim = len(vector)
	if len(vector) == 0 {
		d.QueryEmbeddingMin = 0
		d.QueryEmbeddingMax = 0
		d.QueryEmbeddingMean = 0
		d.QueryEmbeddingHasNaN = false
		return
	}
	lo := math.Inf(1)
	hi := math.Inf(-1)
	sum := 0.0
	hasNaN := false
	for _, v := range vector {
		f := float64(v)
		if math.IsNaN(f) {
			hasNaN = true
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
		sum += f
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	d.QueryEmbeddingMin = lo
	d.QueryEmbeddingMax = hi
	d.QueryEmbeddingMean = sum / float64(len(vector))
	d.QueryEmbeddingHasNaN = hasNaN
}

// RecordTopHits stores a preview of the best hits, at most n entries.
func (d *Debug) RecordTopHits(hits []Hit, n int) {
	if n > len(hits) {
		n = len(hits)
	}
	preview := make([]HitPreview, 0, n)
	for _, h := range hits[:n] {
		preview = append(preview, HitPreview{
			Score:   h.Score,
			ChunkID: h.ChunkID,
			AssetID: h.AssetID,
			PageNum: h.PageNum,
			Preview: truncate(h.Text, previewChars),
		})
	}
	d.TopHitsPreview = preview
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
