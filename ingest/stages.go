// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingest

import (
	"context"
	"fmt"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingest/chunk"
	"github.com/poiesic/lectern/ingest/ocr"
	"github.com/poiesic/lectern/qdrant"
	"golang.org/x/sync/errgroup"
)

// renderStage rasterizes the source file into page images, replaces the
// asset's page rows and advances the stage.
func (p *Pipeline) renderStage(ctx context.Context, asset *core.Asset, paths assetPaths) ([]*core.PageImage, error) {
	renderer, err := p.rendererFor(asset)
	if err != nil {
		return nil, fmt.Errorf("select renderer: %w", err)
	}

	rendered, err := renderer.Render(ctx, asset.Id, asset.StoragePath, paths.pagesDir)
	if err != nil {
		return nil, fmt.Errorf("render pages: %w", err)
	}

	pages := make([]*core.PageImage, len(rendered))
	for i := range rendered {
		pages[i] = &rendered[i]
	}

	if err := p.assets.ReplacePages(ctx, asset.Id, pages); err != nil {
		return nil, fmt.Errorf("store pages: %w", err)
	}
	if err := p.assets.SetStage(ctx, asset.Id, core.StageRendered, ""); err != nil {
		return nil, fmt.Errorf("record rendered stage: %w", err)
	}
	p.logger.Info("asset rendered",
		"asset_id", asset.Id,
		"pages", len(pages))
	return pages, nil
}

// ocrStage recognizes every page, persists per-page artifacts and summary
// rows, and advances the stage. Pages run in parallel up to the configured
// limit; rows are written in page order afterwards. The stage message names
// the engine, or carries the fallback warning when auto selection had to
// settle for the stub.
func (p *Pipeline) ocrStage(ctx context.Context, asset *core.Asset, pages []*core.PageImage, paths assetPaths) error {
	engine, warning, err := ocr.New(p.config.OCR)
	if err != nil {
		return fmt.Errorf("ocr init: %w", err)
	}
	if warning != "" {
		p.logger.Warn("ocr fallback",
			"asset_id", asset.Id,
			"warning", warning)
	}

	records := make([]*core.OCRRecord, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.PageConcurrency)
	for i, page := range pages {
		g.Go(func() error {
			recognized, err := engine.Recognize(gctx, page.Path, page.PageNum)
			if err != nil {
				return fmt.Errorf("ocr page %d: %w", page.PageNum, err)
			}
			recognized.FallbackWarning = warning

			artifactPath, err := ocr.SavePage(recognized, paths.ocrDir)
			if err != nil {
				return err
			}
			record := ocr.BuildRecord(recognized, asset.Id, artifactPath, p.config.OCR.CaptionMinChars)
			records[i] = &record

			p.logger.Debug("ocr page processed",
				"asset_id", asset.Id,
				"page", page.PageNum,
				"engine", recognized.Engine,
				"blocks", len(recognized.Blocks),
				"chars", recognized.TextLen())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, record := range records {
		if err := p.assets.SaveOCRRecord(ctx, record); err != nil {
			return fmt.Errorf("store ocr record: %w", err)
		}
	}

	message := warning
	if message == "" {
		message = "OCR engine used: " + engine.Name()
	}
	if err := p.assets.SetStage(ctx, asset.Id, core.StageOCRDone, message); err != nil {
		return fmt.Errorf("record ocr stage: %w", err)
	}
	return nil
}

// chunkStage re-reads the persisted OCR artifacts in page order, chunks each
// page, writes the asset's chunk artifact and upserts the chunk rows.
func (p *Pipeline) chunkStage(ctx context.Context, asset *core.Asset, paths assetPaths) ([]core.Chunk, error) {
	records, err := p.assets.ListOCRRecords(ctx, asset.Id)
	if err != nil {
		return nil, fmt.Errorf("list ocr records: %w", err)
	}

	var all []core.Chunk
	for _, record := range records {
		page, err := ocr.LoadPage(record.BlockPath)
		if err != nil {
			return nil, err
		}
		all = append(all, chunk.Blocks(asset.SubjectId, asset.Id, record.PageNum, page.Blocks, p.config.Chunk)...)
	}

	if err := chunk.WriteChunks(all, paths.chunkArtifact); err != nil {
		return nil, err
	}

	rows := make([]*core.Chunk, len(all))
	for i := range all {
		rows[i] = &all[i]
	}
	if err := p.chunks.UpsertChunks(ctx, rows); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	if err := p.assets.SetStage(ctx, asset.Id, core.StageChunked, ""); err != nil {
		return nil, fmt.Errorf("record chunked stage: %w", err)
	}
	p.logger.Info("asset chunked",
		"asset_id", asset.Id,
		"chunks", len(all))
	return all, nil
}

// embedStage batch-embeds the chunk texts and upserts one point per chunk.
// Point ids are deterministic, so re-embedding overwrites in place.
func (p *Pipeline) embedStage(ctx context.Context, asset *core.Asset, pages []*core.PageImage, chunks []core.Chunk) error {
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}

		imageByPage := make(map[int]string, len(pages))
		for _, page := range pages {
			imageByPage[page.PageNum] = page.Path
		}

		points := make([]qdrant.Point, len(chunks))
		for i, c := range chunks {
			points[i] = qdrant.NewSlidePoint(c, vectors[i], imageByPage[c.PageNum], asset.Filename)
		}
		if err := p.index.Upsert(ctx, points); err != nil {
			return fmt.Errorf("index chunks: %w", err)
		}
		p.logger.Info("asset embedded",
			"asset_id", asset.Id,
			"points", len(points))
	}

	if err := p.assets.SetStage(ctx, asset.Id, core.StageEmbedded, ""); err != nil {
		return fmt.Errorf("record embedded stage: %w", err)
	}
	return nil
}
