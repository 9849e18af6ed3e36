package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
)

// Expander pulls chunks from pages adjacent to each hit so the prompt sees
// the sentences around a match, not just the matched block. It reads the
// relational store only; no embeddings are involved.
type Expander struct {
	chunks storage.ChunkRepository
	logger *slog.Logger
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander) error

// WithExpanderLogger sets a custom logger.
// Default is slog.Default().
func WithExpanderLogger(logger *slog.Logger) ExpanderOption {
	return func(e *Expander) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExpander creates a new expander.
func NewExpander(chunks storage.ChunkRepository, opts ...ExpanderOption) (*Expander, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	e := &Expander{
		chunks: chunks,
		logger: slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Expand returns the hits followed by neighbor chunks drawn from pages
// within window of each hit's page, and the number of neighbors added.
// Neighbors never come from a hit's own page, duplicates are dropped by
// chunk id, and at most maxExtra neighbors are added across the whole hit
// set. Candidates for one hit are ordered by page distance, then by page and
// block order. Hits without a page, such as notes hits, are left alone but
// kept in the result.
func (e *Expander) Expand(ctx context.Context, hits []Hit, window, maxExtra int) ([]Hit, int, error) {
	if len(hits) == 0 || window <= 0 || maxExtra <= 0 {
		return hits, 0, nil
	}

	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.ChunkID] = true
	}

	added := make([]Hit, 0, maxExtra)
	for _, h := range hits {
		if len(added) >= maxExtra {
			break
		}
		if h.AssetID == "" || h.PageNum < 1 {
			continue
		}

		lo := h.PageNum - window
		if lo < 1 {
			lo = 1
		}
		hi := h.PageNum + window
		candidates, err := e.chunks.ListChunksByPageRange(ctx, h.AssetID, lo, hi)
		if err != nil {
			e.logger.Error("neighbor lookup failed",
				"asset_id", h.AssetID,
				"page_num", h.PageNum,
				"err", err)
			return nil, 0, err
		}

		// Rows arrive in (page, start_block) order; a stable sort by
		// distance from the hit page keeps that order within each ring.
		sort.SliceStable(candidates, func(i, j int) bool {
			return pageDistance(candidates[i], h.PageNum) < pageDistance(candidates[j], h.PageNum)
		})

		for _, c := range candidates {
			if c.PageNum == h.PageNum {
				continue
			}
			if seen[c.Id] {
				continue
			}
			seen[c.Id] = true
			added = append(added, neighborHit(c))
			if len(added) >= maxExtra {
				break
			}
		}
	}

	if len(added) > 0 {
		e.logger.Debug("expanded hits with neighbors",
			"hits", len(hits),
			"added", len(added),
			"window", window)
	}
	return append(hits, added...), len(added), nil
}

func pageDistance(c *core.Chunk, page int) int {
	d := c.PageNum - page
	if d < 0 {
		return -d
	}
	return d
}

// neighborHit wraps a chunk row as a zero-score hit. The source filename is
// left blank; callers fill it from sibling hits on the same asset.
func neighborHit(c *core.Chunk) Hit {
	return Hit{
		ChunkID:    c.Id,
		AssetID:    c.AssetId,
		SubjectID:  c.SubjectId,
		PageNum:    c.PageNum,
		Text:       c.Text,
		BBox:       c.BBox,
		SourceType: qdrant.SourceTypeSlide,
	}
}
