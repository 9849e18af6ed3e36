package reindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
)

// source is one chunk awaiting re-embedding: the text to embed and the
// constructor that turns the resulting vector into its index point.
type source struct {
	text  string
	point func(vector []float32) qdrant.Point
}

// collect walks the catalog and gathers every chunk that should carry a
// vector point: all slide chunks, plus the notes chunks of each asset's
// latest notes version. Superseded notes versions keep their rows but never
// get points.
func (r *Reindexer) collect(ctx context.Context) ([]source, error) {
	subjects, err := r.subjects.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	var sources []source
	for _, subject := range subjects {
		assets, err := r.assets.ListAssets(ctx, subject.Id)
		if err != nil {
			return nil, fmt.Errorf("list assets for subject %s: %w", subject.Id, err)
		}
		for _, asset := range assets {
			slideSources, err := r.collectSlides(ctx, asset)
			if err != nil {
				return nil, err
			}
			sources = append(sources, slideSources...)

			notesSources, err := r.collectNotes(ctx, subject.Id, asset.Id)
			if err != nil {
				return nil, err
			}
			sources = append(sources, notesSources...)
		}
	}
	return sources, nil
}

// collectSlides rebuilds the point constructors for one asset's slide chunks,
// resolving each chunk's page image the same way the ingest pipeline does.
func (r *Reindexer) collectSlides(ctx context.Context, asset *core.Asset) ([]source, error) {
	chunks, err := r.chunks.ListChunksByAsset(ctx, asset.Id)
	if err != nil {
		return nil, fmt.Errorf("list chunks for asset %s: %w", asset.Id, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	pages, err := r.assets.ListPages(ctx, asset.Id)
	if err != nil {
		return nil, fmt.Errorf("list pages for asset %s: %w", asset.Id, err)
	}
	imageByPage := make(map[int]string, len(pages))
	for _, page := range pages {
		imageByPage[page.PageNum] = page.Path
	}

	sources := make([]source, 0, len(chunks))
	for _, chunk := range chunks {
		c := *chunk
		sources = append(sources, source{
			text: c.Text,
			point: func(vector []float32) qdrant.Point {
				return qdrant.NewSlidePoint(c, vector, imageByPage[c.PageNum], asset.Filename)
			},
		})
	}
	return sources, nil
}

// collectNotes rebuilds the point constructors for the asset's latest notes
// version. Assets without notes contribute nothing.
func (r *Reindexer) collectNotes(ctx context.Context, subjectID, assetID string) ([]source, error) {
	latest, err := r.notes.GetLatestNotes(ctx, subjectID, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest notes for asset %s: %w", assetID, err)
	}

	rows, err := r.notes.ListNotesChunks(ctx, latest.Id)
	if err != nil {
		return nil, fmt.Errorf("list notes chunks for %s: %w", latest.Id, err)
	}

	sources := make([]source, 0, len(rows))
	for _, row := range rows {
		c := *row
		sources = append(sources, source{
			text: c.Text,
			point: func(vector []float32) qdrant.Point {
				return qdrant.NewNotesPoint(latest, c, vector)
			},
		})
	}
	return sources, nil
}
